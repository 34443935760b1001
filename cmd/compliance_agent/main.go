// Package main provides the entry point for the compliance engine CLI and
// HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/compliance-engine/internal/compliance"
	"github.com/jonathan/compliance-engine/internal/config"
	"github.com/jonathan/compliance-engine/internal/filestore"
	"github.com/jonathan/compliance-engine/internal/llm"
	"github.com/jonathan/compliance-engine/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "compliance_agent",
	Short: "Compliance checking engine",
	Long:  "Checks candidate text against compliance rules extracted from an uploaded policy document, producing a structured violation report.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deps bundles the wired collaborators shared by the subcommands.
type deps struct {
	cfg      *config.Config
	log      *zap.Logger
	client   llm.Client
	manager  *filestore.Manager
	resolver *filestore.Resolver
	engine   *compliance.Engine
}

// buildDeps loads configuration and constructs the full dependency graph.
// Configuration problems fail here, before any remote call.
func buildDeps(verbose bool) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := observability.NewLogger(verbose || cfg.Verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	client, err := llm.NewGeminiClient(cfg.GeminiAPIKey, cfg.ModelID, log)
	if err != nil {
		return nil, err
	}
	manager := filestore.NewManager(client, log)
	resolver := filestore.NewResolver(manager, cfg.StandardRulesPath, log)
	invoker := llm.NewInvoker(llm.DefaultRetryPolicy(), log)

	return &deps{
		cfg:      cfg,
		log:      log,
		client:   client,
		manager:  manager,
		resolver: resolver,
		engine:   compliance.NewEngine(client, invoker, resolver, log),
	}, nil
}
