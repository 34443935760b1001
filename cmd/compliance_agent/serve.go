package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/compliance-engine/internal/server"
)

var (
	servePort    int
	serveVerbose bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for uploading rules and running compliance checks.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	d, err := buildDeps(serveVerbose)
	if err != nil {
		return err
	}
	defer d.log.Sync() //nolint:errcheck

	port := d.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(d.engine, server.Config{Port: port}, d.log)
	return srv.Start()
}
