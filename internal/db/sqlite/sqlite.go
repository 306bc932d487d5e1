// Package sqlite implements db.Store on SQLite.
//
// The schema carries the relational rules the services rely on: unique card
// numbers, license numbers, plates and usernames; foreign keys from operations to
// cards (RESTRICT), from distributions to operations (CASCADE) and to their
// vehicle or reservoir (RESTRICT); and one notification per (user, link, type).
//
// The pool is limited to a single connection. Transactions are opened with
// BEGIN IMMEDIATE so a ledger mutation holds the write lock from its first read.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/ukydev/fleet-backoffice/internal/db"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// timeLayout has a fixed width so stored dates sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements db.Store using SQLite.
type Store struct {
	collections
	db *sql.DB
}

var _ db.Store = (*Store)(nil)

// New opens (and migrates) the database at path. Use ":memory:" for a private
// in-memory database.
func New(path string) (*Store, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{collections: collections{q: conn}, db: conn}
	if err := s.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

// WithTx runs fn in a transaction, rolling back when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx db.Collections) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(ctx, &collections{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		last_login TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS drivers (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		license_number TEXT NOT NULL UNIQUE,
		license_category TEXT NOT NULL DEFAULT '',
		license_expires_at TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		plate TEXT NOT NULL UNIQUE,
		make TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL DEFAULT 0,
		fuel_type TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		driver_id TEXT UNIQUE REFERENCES drivers(id) ON DELETE SET NULL,
		circulation_expires_at TEXT,
		operational_license_expires_at TEXT,
		somaton_expires_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fuel_cards (
		id TEXT PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		fuel_type TEXT NOT NULL DEFAULT '',
		unit_price TEXT NOT NULL,
		currency TEXT NOT NULL,
		expires_at TEXT,
		is_reservoir INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reservoirs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		fuel_type TEXT NOT NULL DEFAULT '',
		capacity_liters TEXT NOT NULL,
		location TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS maintenance (
		id TEXT PRIMARY KEY,
		vehicle_id TEXT NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		service_date TEXT NOT NULL,
		next_service_date TEXT,
		mileage REAL NOT NULL DEFAULT 0,
		cost TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_maintenance_vehicle ON maintenance(vehicle_id);

	CREATE TABLE IF NOT EXISTS fuel_operations (
		id TEXT PRIMARY KEY,
		fuel_card_id TEXT NOT NULL REFERENCES fuel_cards(id) ON DELETE RESTRICT,
		type TEXT NOT NULL CHECK (type IN ('Carga', 'Consumo')),
		date TEXT NOT NULL,
		seq INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		opening_balance TEXT NOT NULL,
		amount TEXT NOT NULL,
		amount_liters TEXT NOT NULL,
		closing_balance TEXT NOT NULL,
		closing_balance_liters TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (fuel_card_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_fuel_operations_card_chain
		ON fuel_operations(fuel_card_id, date, seq);

	CREATE TABLE IF NOT EXISTS fuel_distributions (
		id TEXT PRIMARY KEY,
		operation_id TEXT NOT NULL REFERENCES fuel_operations(id) ON DELETE CASCADE,
		vehicle_id TEXT REFERENCES vehicles(id) ON DELETE RESTRICT,
		reservoir_id TEXT REFERENCES reservoirs(id) ON DELETE RESTRICT,
		liters TEXT NOT NULL,
		created_at TEXT NOT NULL,
		CHECK ((vehicle_id IS NULL) <> (reservoir_id IS NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_fuel_distributions_operation ON fuel_distributions(operation_id);
	CREATE INDEX IF NOT EXISTS idx_fuel_distributions_vehicle ON fuel_distributions(vehicle_id);
	CREATE INDEX IF NOT EXISTS idx_fuel_distributions_reservoir ON fuel_distributions(reservoir_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL,
		read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (user_id, link, type)
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// collections implements db.Collections over either the pool or a transaction.
type collections struct {
	q querier
}

func (c *collections) Users() db.UserCollection                   { return c }
func (c *collections) Drivers() db.DriverCollection               { return c }
func (c *collections) Vehicles() db.VehicleCollection             { return c }
func (c *collections) FuelCards() db.FuelCardCollection           { return c }
func (c *collections) Reservoirs() db.ReservoirCollection         { return c }
func (c *collections) Maintenance() db.MaintenanceCollection      { return c }
func (c *collections) FuelOperations() db.FuelOperationCollection { return c }
func (c *collections) Distributions() db.DistributionCollection   { return c }
func (c *collections) Notifications() db.NotificationCollection   { return c }

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// mapError translates constraint failures into the model error taxonomy.
func mapError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return &models.ConflictError{Entity: entity, Field: uniqueField(se.Error())}
		case sqlite3.ErrConstraintForeignKey:
			return &models.ConflictError{Entity: entity, Reason: "violates a reference to another record"}
		}
	}
	return err
}

// mapDeleteError is mapError for deletes, where a foreign key failure means the
// row is still referenced.
func mapDeleteError(err error, entity string) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return &models.ConflictError{Entity: entity, Reason: "still referenced by other records"}
	}
	return mapError(err, entity)
}

// uniqueField extracts "number" from "UNIQUE constraint failed: fuel_cards.number".
func uniqueField(msg string) string {
	if i := strings.LastIndex(msg, "."); i >= 0 && i+1 < len(msg) {
		return strings.Split(msg[i+1:], ",")[0]
	}
	return "key"
}

// expectOne turns a zero-row update or delete into a not-found error.
func expectOne(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NotFound(entity, id)
	}
	return nil
}
