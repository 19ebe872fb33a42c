package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"weddingbudget/internal/selection"
	"weddingbudget/internal/snapshot"
)

var flagApply bool

var migrateSelectionsCmd = &cobra.Command{
	Use:   "migrate-selections <export.json>",
	Short: "Convert a user's legacy single-id selections to the array form",
	Long: "Reads selectedVendors for the user from an export and reports whether it uses the legacy shape.\n" +
		"With --apply the canonical map replaces the stored selection.",
	Args: cobra.ExactArgs(1),
	RunE: runMigrateSelections,
}

var cleanupOrphansCmd = &cobra.Command{
	Use:   "cleanup-orphans",
	Short: "Remove selections that reference deleted vendors",
	Args:  cobra.NoArgs,
	RunE:  runCleanupOrphans,
}

func init() {
	migrateSelectionsCmd.Flags().BoolVar(&flagApply, "apply", false, "Store the migrated selection")
	migrateSelectionsCmd.Flags().BoolVar(&flagDesanitize, "desanitize-keys", false, `Restore "/" in selection keys written as "-"`)
	rootCmd.AddCommand(migrateSelectionsCmd, cleanupOrphansCmd)
}

type selectedVendorsFile struct {
	Selected map[string]json.RawMessage `json:"selectedVendors"`
}

func runMigrateSelections(cmd *cobra.Command, args []string) error {
	if flagUser == "" {
		return fmt.Errorf("--user is required")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var f selectedVendorsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode export: %w", err)
	}

	migrated, changed := snapshot.MigrateLegacySelection(f.Selected[flagUser], snapshot.Options{DesanitizeKeys: flagDesanitize})
	out := cmd.OutOrStdout()
	if !changed {
		fmt.Fprintln(out, "selection already canonical")
	} else {
		fmt.Fprintf(out, "selection needs migration: %d service types, %d vendors\n",
			len(migrated), len(selection.IDs(migrated)))
	}
	if !flagApply {
		return nil
	}

	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if _, err := e.svc.ReplaceSelection(ctx, flagUser, migrated); err != nil {
		return fmt.Errorf("store selection: %w", err)
	}
	fmt.Fprintln(out, "selection stored")
	return nil
}

func runCleanupOrphans(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	removed, err := e.svc.CleanupOrphans(ctx, flagUser)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphaned selections\n", removed)
	return nil
}
