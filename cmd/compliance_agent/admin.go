package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/compliance-engine/internal/filestore"
	"github.com/jonathan/compliance-engine/internal/llm"
)

// clearConcurrency bounds the delete fan-out when clearing the store.
const clearConcurrency = 4

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage the shared standard rules store",
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all documents indexed in the shared store",
	RunE:  runAdminList,
}

var adminClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every document in the shared store (requires confirmation)",
	RunE:  runAdminClear,
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the entire shared store (requires confirmation)",
	RunE:  runAdminDelete,
}

var adminSeedCmd = &cobra.Command{
	Use:   "seed [path]",
	Short: "Upload a default policy document into the shared store",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAdminSeed,
}

func init() {
	adminCmd.AddCommand(adminListCmd, adminClearCmd, adminDeleteCmd, adminSeedCmd)
	rootCmd.AddCommand(adminCmd)
}

// findAdminStore locates the shared store without creating it. Admin
// commands never create state as a side effect.
func findAdminStore(ctx context.Context, client llm.Client) (string, error) {
	stores, err := client.ListStores(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list stores: %w", err)
	}
	for _, s := range stores {
		if s.DisplayName == filestore.AdminStoreDisplayName {
			return s.Name, nil
		}
	}
	return "", nil
}

func confirm(prompt, expected string, caseSensitive bool) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.TrimSpace(line)
	if caseSensitive {
		return line == expected
	}
	return strings.EqualFold(line, expected)
}

func runAdminList(cmd *cobra.Command, _ []string) error {
	d, err := buildDeps(false)
	if err != nil {
		return err
	}
	defer d.log.Sync() //nolint:errcheck

	storeName, err := findAdminStore(cmd.Context(), d.client)
	if err != nil {
		return err
	}
	if storeName == "" {
		fmt.Printf("Store %q does not exist.\n", filestore.AdminStoreDisplayName)
		return nil
	}
	fmt.Printf("Store: %s\n", storeName)

	docs, err := d.manager.ListRecords(cmd.Context(), storeName)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("The store is empty.")
		return nil
	}
	fmt.Printf("%d document(s):\n", len(docs))
	for i, doc := range docs {
		fmt.Printf("\n[%d] %s\n", i+1, doc.Name)
		for _, m := range doc.CustomMetadata {
			if m.NumericValue != nil {
				fmt.Printf("    %s: %v\n", m.Key, *m.NumericValue)
				continue
			}
			fmt.Printf("    %s: %s\n", m.Key, m.StringValue)
		}
	}
	return nil
}

func runAdminClear(cmd *cobra.Command, _ []string) error {
	d, err := buildDeps(false)
	if err != nil {
		return err
	}
	defer d.log.Sync() //nolint:errcheck

	ctx := cmd.Context()
	storeName, err := findAdminStore(ctx, d.client)
	if err != nil {
		return err
	}
	if storeName == "" {
		fmt.Println("Store not found. Nothing to clear.")
		return nil
	}

	docs, err := d.manager.ListRecords(ctx, storeName)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("Store is already empty.")
		return nil
	}

	fmt.Printf("WARNING: you are about to delete %d document(s) from the store.\n", len(docs))
	if !confirm("Type 'yes' to confirm: ", "yes", false) {
		fmt.Println("Operation cancelled.")
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(clearConcurrency)
	for _, doc := range docs {
		g.Go(func() error {
			if binary := doc.Tags()[filestore.TagBinaryName]; binary != "" {
				if err := d.client.DeleteFile(ctx, binary); err != nil {
					fmt.Printf("Binary %s already gone or inaccessible.\n", binary)
				}
			}
			if err := d.client.DeleteDocument(ctx, doc.Name); err != nil {
				return fmt.Errorf("failed to remove %s: %w", doc.Name, err)
			}
			fmt.Printf("Removed document entry: %s\n", doc.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println("Finished clearing store.")
	return nil
}

func runAdminDelete(cmd *cobra.Command, _ []string) error {
	d, err := buildDeps(false)
	if err != nil {
		return err
	}
	defer d.log.Sync() //nolint:errcheck

	storeName, err := findAdminStore(cmd.Context(), d.client)
	if err != nil {
		return err
	}
	if storeName == "" {
		fmt.Println("Store not found.")
		return nil
	}

	fmt.Printf("DANGER: you are about to delete the ENTIRE store: %s\n", storeName)
	fmt.Println("This destroys all indexed documents permanently.")
	if !confirm("Type 'DELETE STORE' to confirm: ", "DELETE STORE", true) {
		fmt.Println("Operation cancelled.")
		return nil
	}

	if err := d.client.DeleteStore(cmd.Context(), storeName, true); err != nil {
		return fmt.Errorf("failed to delete store: %w", err)
	}
	fmt.Printf("Store %q deleted.\n", filestore.AdminStoreDisplayName)
	return nil
}

func runAdminSeed(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(false)
	if err != nil {
		return err
	}
	defer d.log.Sync() //nolint:errcheck

	path := d.cfg.StandardRulesPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no path given and STANDARD_RULES_PATH is not set")
	}

	if err := d.resolver.SeedStandardRules(cmd.Context(), filestore.PathSource(path)); err != nil {
		return err
	}
	fmt.Printf("Seeded standard rules from %s.\n", path)
	return nil
}
