package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"weddingbudget/internal/reconcile"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the budget summary for a user",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

var exportCmd = &cobra.Command{
	Use:   "export-ledger",
	Short: "Export the user's ledger and summary to the configured spreadsheet",
	Args:  cobra.NoArgs,
	RunE:  runExportLedger,
}

func init() {
	rootCmd.AddCommand(summaryCmd, exportCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.svc.Dashboard(ctx, flagUser)
	if err != nil {
		return err
	}
	return printSummary(cmd.OutOrStdout(), s)
}

func printSummary(out io.Writer, s reconcile.Summary) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := []struct {
		label string
		value string
	}{
		{"Total budget", s.TotalBudget.String()},
		{"Total paid", s.TotalPaid.String()},
		{"Budget left", s.BudgetLeft.String()},
		{"Left to pay", s.LeftToPay.String()},
		{"Left to pay (selected)", s.LeftToPayBySelectedVendors.String()},
		{"Selected contracts", s.SelectedContractTotal.String()},
		{"Actual remaining", s.ActualRemaining.String()},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", r.label, r.value)
	}
	if s.OrphanedSelections > 0 {
		fmt.Fprintf(tw, "Orphaned selections\t%d\n", s.OrphanedSelections)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Person\tPromised\tSpent\tRemaining")
	for _, b := range s.People {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.Person, b.Promised, b.Spent, b.Remaining)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Vendor\tPaid\tRemaining\tProgress")
	for _, p := range s.Vendors {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%% (%s)\n", p.VendorID, p.TotalPaid, p.Remaining, p.Percentage, p.Severity)
	}
	return tw.Flush()
}

func runExportLedger(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	e, err := setup(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	if e.backend.Exporter == nil {
		return fmt.Errorf("no exporter configured, set GOOGLE_SPREADSHEET_ID")
	}
	report, err := e.svc.Report(ctx, flagUser)
	if err != nil {
		return err
	}
	if err := e.backend.Exporter.ExportLedger(ctx, report); err != nil {
		return fmt.Errorf("export ledger: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d ledger groups\n", len(report.Ledger))
	return nil
}
