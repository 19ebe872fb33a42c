package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"weddingbudget/internal/core"
	"weddingbudget/internal/sheets"
	"weddingbudget/internal/snapshot"
)

func TestExporterKeepsLastReport(t *testing.T) {
	ctx := context.Background()
	e := New()
	snap := snapshot.Snapshot{
		Contributions: []core.BudgetContribution{{ID: "c1", Name: "Andrea", Amount: core.Money{Cents: 100}}},
	}

	first := sheets.BuildReport("u1", snap, nil, time.Unix(0, 0))
	second := sheets.BuildReport("u1", snap, nil, time.Unix(60, 0))
	if err := e.ExportLedger(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := e.ExportLedger(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, ok := e.Last("u1")
	if !ok || !got.GeneratedAt.Equal(time.Unix(60, 0)) || got.Summary.TotalBudget.Cents != 100 {
		t.Errorf("Last() = %+v, %v", got, ok)
	}
	if e.Count() != 2 {
		t.Errorf("Count() = %d, want 2", e.Count())
	}
	if _, ok := e.Last("u2"); ok {
		t.Error("unexpected report for u2")
	}
}

func TestExporterErrors(t *testing.T) {
	e := New()
	if err := e.ExportLedger(context.Background(), sheets.Report{}); err == nil {
		t.Error("expected error for report without user")
	}

	boom := errors.New("quota exceeded")
	e.FailWith(boom)
	if err := e.ExportLedger(context.Background(), sheets.Report{UserID: "u1"}); !errors.Is(err, boom) {
		t.Errorf("ExportLedger() err = %v, want %v", err, boom)
	}
	if e.Count() != 0 {
		t.Errorf("Count() = %d, want 0", e.Count())
	}
}
