// Package backend wires the persistence, messaging and export adapters
// selected by configuration.
package backend

import (
	"context"

	"weddingbudget/internal/amqp"
	"weddingbudget/internal/sheets"
	"weddingbudget/internal/store"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult holds the adapters built for a configuration. AMQP and
// Exporter are nil when not configured.
type BackendResult struct {
	Store    store.Backend
	AMQP     *amqp.Client
	Exporter sheets.LedgerExporter
	Cleanup  CleanupFunc
}

// Publisher returns the event publisher, or nil when AMQP is disabled.
func (r *BackendResult) Publisher() amqp.Publisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	PostgresDSN  string
	SeedFile     string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
	// RequireAMQP turns an AMQP connection failure into an error instead
	// of a warning.
	RequireAMQP bool

	GoogleSpreadsheetID string
	LedgerSheetName     string
	SummarySheetName    string
}

// BackendType represents the type of persistence backend.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
