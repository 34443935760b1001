package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/compliance-engine/internal/filestore"
	"github.com/jonathan/compliance-engine/internal/observability"
	"github.com/jonathan/compliance-engine/internal/types"
)

var (
	checkUser    string
	checkRules   string
	checkText    string
	checkFile    string
	checkVerbose bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one compliance check",
	Long: `Check a block of text against compliance rules. With --rules a policy
document is uploaded for this run and removed afterwards; without it the
shared standard rules apply.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkUser, "user", "", "User identifier (required)")
	checkCmd.Flags().StringVar(&checkRules, "rules", "", "Path to a policy document (PDF)")
	checkCmd.Flags().StringVar(&checkText, "text", "", "Text to check")
	checkCmd.Flags().StringVar(&checkFile, "file", "", "Path to a file with the text to check")
	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "Enable debug logging")
	_ = checkCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if checkText == "" && checkFile == "" {
		return fmt.Errorf("either --text or --file is required")
	}
	content := checkText
	if checkFile != "" {
		data, err := os.ReadFile(checkFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", checkFile, err)
		}
		content = string(data)
	}

	d, err := buildDeps(checkVerbose)
	if err != nil {
		return err
	}
	defer d.log.Sync() //nolint:errcheck

	var src filestore.Source
	if checkRules != "" {
		src = filestore.PathSource(checkRules)
	}

	result := d.engine.CheckCompliance(cmd.Context(), checkUser, src, content)

	printer := observability.NewPrinter(os.Stdout)
	printer.PrintResult(result)

	if result.Status != types.StatusSuccess {
		return fmt.Errorf("check did not produce a valid report (status: %s)", result.Status)
	}
	return nil
}
