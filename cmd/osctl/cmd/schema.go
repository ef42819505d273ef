package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"objectstore/internal/catalog"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage registered schemas",
}

var schemaCreateFile string

var schemaCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new schema from a JSON definition file",
	RunE: func(c *cobra.Command, args []string) error {
		raw, err := os.ReadFile(schemaCreateFile)
		if err != nil {
			return fmt.Errorf("read schema definition: %w", err)
		}
		var req catalog.CreateRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("parse schema definition: %w", err)
		}

		store, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer store.Close()

		schema, err := store.CreateSchema(context.Background(), req)
		if err != nil {
			return err
		}
		return printJSON(schema)
	},
}

var schemaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered schema",
	RunE: func(c *cobra.Command, args []string) error {
		store, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer store.Close()

		schemas, err := store.ListSchemas(context.Background())
		if err != nil {
			return err
		}
		return printJSON(schemas)
	},
}

var schemaGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print one schema by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		store, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer store.Close()

		schema, err := store.GetSchema(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(schema)
	},
}

var schemaDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a schema (soft delete keeps its backing table; hard delete drops it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		store, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteSchema(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("schema %q deleted\n", args[0])
		return nil
	},
}

func init() {
	schemaCreateCmd.Flags().StringVar(&schemaCreateFile, "file", "", "path to a JSON schema definition")
	schemaCreateCmd.MarkFlagRequired("file")

	schemaCmd.AddCommand(schemaCreateCmd, schemaListCmd, schemaGetCmd, schemaDeleteCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
