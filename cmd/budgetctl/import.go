package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weddingbudget/internal/snapshot"
)

var flagDesanitize bool

var importCmd = &cobra.Command{
	Use:   "import <export.json>",
	Short: "Import a user's records from a realtime-database export",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().BoolVar(&flagDesanitize, "desanitize-keys", false, `Restore "/" in selection keys written as "-"`)
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	snap, err := snapshot.DecodeExport(f, flagUser, snapshot.Options{DesanitizeKeys: flagDesanitize})
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.svc.Import(ctx, flagUser, snap); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d vendors, %d expenses, %d contributions, %d selected service types\n",
		len(snap.Vendors), len(snap.Expenses), len(snap.Contributions), len(snap.Selection))
	return nil
}
