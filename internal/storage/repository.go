// Package storage is the database/sql implementation of store.Backend for
// SQLite and PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"weddingbudget/internal/core"
	"weddingbudget/internal/log"
	"weddingbudget/internal/selection"
	"weddingbudget/internal/store"
)

// Dialect names a supported SQL database.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DriverName returns the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind rewrites "?" placeholders to the dialect's positional form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type Repository struct {
	db      *sql.DB
	dialect Dialect
}

var _ store.Backend = (*Repository)(nil)

// NewSQLiteRepository opens (creating if needed) the SQLite database at
// dbPath and applies migrations.
func NewSQLiteRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(SQLite, dbPath)
}

// NewPostgresRepository connects to dsn and applies migrations.
func NewPostgresRepository(dsn string) (*Repository, error) {
	return open(Postgres, dsn)
}

func open(dialect Dialect, dsn string) (*Repository, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if dialect == SQLite {
		// SQLite serializes writers.
		db.SetMaxOpenConns(1)
	}

	return &Repository{db: db, dialect: dialect}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
}

func (r *Repository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...)
}

// deleted maps a zero-row delete to store.ErrNotFound.
func deleted(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, store.ErrNotFound)
	}
	return nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, store.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", what, id, err)
}

const vendorColumns = `id, service_type, name, contact_number, email, package_name, contract_price_cents, notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanVendor(s scanner) (core.Vendor, error) {
	var v core.Vendor
	err := s.Scan(&v.ID, &v.ServiceType, &v.Name, &v.ContactNumber, &v.Email, &v.PackageName, &v.ContractPrice.Cents, &v.Notes)
	return v, err
}

func (r *Repository) ListVendors(ctx context.Context, uid string) ([]core.Vendor, error) {
	rows, err := r.query(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE user_id = ? ORDER BY name, id`, uid)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var out []core.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repository) GetVendor(ctx context.Context, uid, id string) (core.Vendor, error) {
	v, err := scanVendor(r.queryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE user_id = ? AND id = ?`, uid, id))
	if err != nil {
		return core.Vendor{}, notFound(err, "vendor", id)
	}
	return v, nil
}

func (r *Repository) SaveVendor(ctx context.Context, uid string, v core.Vendor) error {
	_, err := r.exec(ctx, `
		INSERT INTO vendors (user_id, `+vendorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			service_type = excluded.service_type,
			name = excluded.name,
			contact_number = excluded.contact_number,
			email = excluded.email,
			package_name = excluded.package_name,
			contract_price_cents = excluded.contract_price_cents,
			notes = excluded.notes`,
		uid, v.ID, v.ServiceType, v.Name, v.ContactNumber, v.Email, v.PackageName, v.ContractPrice.Cents, v.Notes)
	if err != nil {
		return fmt.Errorf("save vendor: %w", err)
	}

	slog.DebugContext(ctx, "Vendor saved", log.FieldUserID, uid, log.FieldVendorID, v.ID)
	return nil
}

func (r *Repository) DeleteVendor(ctx context.Context, uid, id string) error {
	res, err := r.exec(ctx, `DELETE FROM vendors WHERE user_id = ? AND id = ?`, uid, id)
	if err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	return deleted(res, "vendor", id)
}

const expenseColumns = `id, vendor_id, vendor_type, amount_cents, expense_date, paid_by, notes`

func scanExpense(s scanner) (core.BudgetExpense, error) {
	var (
		e    core.BudgetExpense
		date string
		paid string
	)
	if err := s.Scan(&e.ID, &e.VendorID, &e.VendorType, &e.Amount.Cents, &date, &paid, &e.Notes); err != nil {
		return e, err
	}
	if date != "" {
		d, err := core.ParseDate(date)
		if err == nil {
			e.Date = d
		}
	}
	e.PaidBy = core.Payer(paid)
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, uid string) ([]core.BudgetExpense, error) {
	rows, err := r.query(ctx, `SELECT `+expenseColumns+` FROM budget_expenses WHERE user_id = ? ORDER BY seq`, uid)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetExpense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) GetExpense(ctx context.Context, uid, id string) (core.BudgetExpense, error) {
	e, err := scanExpense(r.queryRow(ctx, `SELECT `+expenseColumns+` FROM budget_expenses WHERE user_id = ? AND id = ?`, uid, id))
	if err != nil {
		return core.BudgetExpense{}, notFound(err, "expense", id)
	}
	return e, nil
}

// SaveExpense upserts e. New rows are appended after the user's last expense;
// updates keep their position.
func (r *Repository) SaveExpense(ctx context.Context, uid string, e core.BudgetExpense) error {
	_, err := r.exec(ctx, `
		INSERT INTO budget_expenses (user_id, seq, `+expenseColumns+`)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM budget_expenses WHERE user_id = ?), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			vendor_id = excluded.vendor_id,
			vendor_type = excluded.vendor_type,
			amount_cents = excluded.amount_cents,
			expense_date = excluded.expense_date,
			paid_by = excluded.paid_by,
			notes = excluded.notes`,
		uid, uid, e.ID, e.VendorID, e.VendorType, e.Amount.Cents, e.Date.String(), string(e.PaidBy), e.Notes)
	if err != nil {
		return fmt.Errorf("save expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved", log.NewFields().
		WithComponent(log.ComponentStorage).
		WithUser(uid).
		WithExpense(e.ID, e.VendorID, e.Amount.Cents).
		ToSlice()...)
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, uid, id string) error {
	res, err := r.exec(ctx, `DELETE FROM budget_expenses WHERE user_id = ? AND id = ?`, uid, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return deleted(res, "expense", id)
}

func (r *Repository) ListContributions(ctx context.Context, uid string) ([]core.BudgetContribution, error) {
	rows, err := r.query(ctx, `SELECT id, name, amount_cents FROM budget_contributions WHERE user_id = ? ORDER BY seq`, uid)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var out []core.BudgetContribution
	for rows.Next() {
		var c core.BudgetContribution
		if err := rows.Scan(&c.ID, &c.Name, &c.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetContribution(ctx context.Context, uid, id string) (core.BudgetContribution, error) {
	var c core.BudgetContribution
	err := r.queryRow(ctx, `SELECT id, name, amount_cents FROM budget_contributions WHERE user_id = ? AND id = ?`, uid, id).
		Scan(&c.ID, &c.Name, &c.Amount.Cents)
	if err != nil {
		return core.BudgetContribution{}, notFound(err, "contribution", id)
	}
	return c, nil
}

func (r *Repository) SaveContribution(ctx context.Context, uid string, c core.BudgetContribution) error {
	_, err := r.exec(ctx, `
		INSERT INTO budget_contributions (user_id, seq, id, name, amount_cents)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM budget_contributions WHERE user_id = ?), ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			name = excluded.name,
			amount_cents = excluded.amount_cents`,
		uid, uid, c.ID, c.Name, c.Amount.Cents)
	if err != nil {
		return fmt.Errorf("save contribution: %w", err)
	}
	return nil
}

func (r *Repository) GetSelection(ctx context.Context, uid string) (selection.Map, error) {
	rows, err := r.query(ctx, `SELECT service_type, vendor_id FROM selected_vendors WHERE user_id = ? ORDER BY service_type, position`, uid)
	if err != nil {
		return nil, fmt.Errorf("get selection: %w", err)
	}
	defer rows.Close()

	m := selection.Map{}
	for rows.Next() {
		var serviceType, vendorID string
		if err := rows.Scan(&serviceType, &vendorID); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		m[serviceType] = append(m[serviceType], vendorID)
	}
	return m, rows.Err()
}

// PutSelection replaces the user's selection rows in one transaction.
func (r *Repository) PutSelection(ctx context.Context, uid string, m selection.Map) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM selected_vendors WHERE user_id = ?`), uid); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}

	insert := r.dialect.Rebind(`INSERT INTO selected_vendors (user_id, service_type, vendor_id, position) VALUES (?, ?, ?, ?)`)
	canonical := selection.Normalize(m)
	for _, serviceType := range selection.ServiceTypes(canonical) {
		for pos, vendorID := range canonical[serviceType] {
			if _, err := tx.ExecContext(ctx, insert, uid, serviceType, vendorID, pos); err != nil {
				return fmt.Errorf("insert selection %s/%s: %w", serviceType, vendorID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit selection: %w", err)
	}
	return nil
}
