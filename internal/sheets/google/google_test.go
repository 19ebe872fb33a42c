package google

import (
	"context"
	"strings"
	"testing"
	"time"

	"weddingbudget/internal/core"
	ports "weddingbudget/internal/sheets"
	"weddingbudget/internal/snapshot"
)

func TestNewClient_MissingSpreadsheetID(t *testing.T) {
	_, err := newClient(Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClient_DefaultSheetNames(t *testing.T) {
	c, err := newClient(Options{SpreadsheetID: "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if c.ledgerBase != "Ledger" || c.summaryBase != "Summary" {
		t.Errorf("defaults = %q, %q", c.ledgerBase, c.summaryBase)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := newSheetsService(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("newSheetsService() err = %v", err)
	}
}

func TestExportLedger_Uninitialized(t *testing.T) {
	c := &Client{spreadsheetID: "abc"}
	if err := c.ExportLedger(context.Background(), ports.Report{UserID: "u1"}); err == nil {
		t.Error("expected error when service is nil")
	}
}

func TestSheetNaming(t *testing.T) {
	tests := []struct {
		base, uid, want string
	}{
		{"Ledger", "u1", "Ledger u1"},
		{" Summary ", "abc", "Summary abc"},
	}
	for _, tt := range tests {
		if got := userSheetName(tt.base, tt.uid); got != tt.want {
			t.Errorf("userSheetName(%q, %q) = %q, want %q", tt.base, tt.uid, got, tt.want)
		}
	}
	if got := quoteSheet("Andrea's Ledger"); got != "'Andrea''s Ledger'" {
		t.Errorf("quoteSheet() = %s", got)
	}
}

func testReport() ports.Report {
	snap := snapshot.Snapshot{
		Vendors: []core.Vendor{{ID: "v1", ServiceType: "Catering", Name: "Feast", ContractPrice: core.Money{Cents: 1000000}}},
		Expenses: []core.BudgetExpense{
			{ID: "e2", VendorID: "v1", Amount: core.Money{Cents: 250000}, Date: core.NewDate(2025, 3, 1), PaidBy: "Isaac"},
			{ID: "e1", VendorID: "v1", Amount: core.Money{Cents: 250000}, Date: core.NewDate(2025, 1, 1), PaidBy: "Andrea", Notes: "deposit"},
			{ID: "g1", VendorID: "ghost", Amount: core.Money{Cents: 1000}, Date: core.NewDate(2025, 2, 1), PaidBy: "Andrea"},
		},
		Contributions: []core.BudgetContribution{{ID: "c1", Name: "Andrea", Amount: core.Money{Cents: 2000000}}},
	}
	return ports.BuildReport("u1", snap, []core.Payer{"Andrea", "Isaac"}, time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC))
}

func TestLedgerRows(t *testing.T) {
	rows := ledgerRows(testReport())

	// header + 2 Feast rows + spacer + 1 ghost row
	if len(rows) != 5 {
		t.Fatalf("ledgerRows() returned %d rows: %v", len(rows), rows)
	}
	first := rows[1]
	if first[0] != "Feast" || first[2] != "2025-01-01" || first[3] != "2500.00" || first[5] != "2500.00" || first[6] != "7500.00" || first[7] != "deposit" {
		t.Errorf("first ledger row = %v", first)
	}
	if rows[2][5] != "5000.00" || rows[2][6] != "5000.00" {
		t.Errorf("second ledger row = %v", rows[2])
	}
	if len(rows[3]) != 0 {
		t.Errorf("expected spacer row, got %v", rows[3])
	}
	if rows[4][0] != "Unknown Vendor" || rows[4][6] != "0.00" {
		t.Errorf("ghost row = %v", rows[4])
	}
}

func TestSummaryRows(t *testing.T) {
	rows := summaryRows(testReport())

	values := map[string]any{}
	for _, row := range rows {
		if len(row) >= 2 {
			if label, ok := row[0].(string); ok {
				values[label] = row[1]
			}
		}
	}
	checks := map[string]string{
		"Generated":    "2025-04-01T09:00:00Z",
		"Total Budget": "20000.00",
		"Total Paid":   "5010.00",
		"Budget Left":  "14990.00",
		"Left To Pay":  "5000.00",
		"Andrea":       "20000.00",
		"Feast":        "5000.00",
	}
	for label, want := range checks {
		if values[label] != want {
			t.Errorf("%s = %v, want %s", label, values[label], want)
		}
	}

	last := rows[len(rows)-1]
	if last[3] != "50%" || last[4] != "mid" {
		t.Errorf("vendor progress row = %v", last)
	}
}
