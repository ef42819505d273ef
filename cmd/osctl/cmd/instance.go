package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"objectstore/internal/instance"
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Create and query instances of a registered schema",
}

var instanceCreateFile string

var instanceCreateCmd = &cobra.Command{
	Use:   "create [schema]",
	Short: "Create one instance from a JSON properties file",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		raw, err := os.ReadFile(instanceCreateFile)
		if err != nil {
			return fmt.Errorf("read properties: %w", err)
		}
		props, err := instance.ParseProperties(raw)
		if err != nil {
			return err
		}

		store, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.CreateInstance(context.Background(), args[0], props)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var instanceGetCmd = &cobra.Command{
	Use:   "get [schema] [id]",
	Short: "Print one instance by ID",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		store, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer store.Close()

		inst, err := store.GetInstance(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(inst)
	},
}

var (
	instanceQueryLimit  int
	instanceQueryOffset int
)

var instanceQueryCmd = &cobra.Command{
	Use:   "query [schema]",
	Short: "List one page of a schema's instances (--limit, --offset)",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		store, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer store.Close()

		f := instance.SimpleFilter{
			SchemaName: args[0],
			Limit:      instanceQueryLimit,
			Offset:     instanceQueryOffset,
		}
		rows, total, err := store.QueryInstances(context.Background(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "total: %d\n", total)
		return printJSON(rows)
	},
}

var instanceDeleteCmd = &cobra.Command{
	Use:   "delete [schema] [id]",
	Short: "Delete one instance by ID",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		store, err := openStore(context.Background())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteInstance(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("instance %q deleted\n", args[1])
		return nil
	},
}

func init() {
	instanceCreateCmd.Flags().StringVar(&instanceCreateFile, "file", "", "path to a JSON properties object")
	instanceCreateCmd.MarkFlagRequired("file")

	instanceQueryCmd.Flags().IntVar(&instanceQueryLimit, "limit", 50, "maximum rows to return")
	instanceQueryCmd.Flags().IntVar(&instanceQueryOffset, "offset", 0, "row offset to start from")

	instanceCmd.AddCommand(instanceCreateCmd, instanceGetCmd, instanceQueryCmd, instanceDeleteCmd)
}
