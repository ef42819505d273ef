// Package cmd implements osctl, a small command-line client driving the
// ObjectStore library surface directly, without going through the HTTP
// facade.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"objectstore/internal/config"
	"objectstore/internal/objectstore"
)

var RootCmd = &cobra.Command{
	Use:   "osctl",
	Short: "Command-line client for the schema-driven object store",
	Long: `osctl drives the ObjectStore library surface from the command line:

  osctl schema create|list|get|delete
  osctl instance create|get|query|delete

Use "osctl [command] --help" for more information about a command.`,
}

func init() {
	RootCmd.AddCommand(schemaCmd)
	RootCmd.AddCommand(instanceCmd)
}

// Execute runs the root command, exiting the process with status 1 on
// failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore loads configuration and builds an ObjectStore for one CLI
// invocation's lifetime. Callers must Close() the result.
func openStore(ctx context.Context) (*objectstore.ObjectStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return objectstore.New(ctx, cfg)
}
