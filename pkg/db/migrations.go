package db

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MigrationsTable records applied schema versions.
const MigrationsTable = "mta_schema_migrations"

// Migration is one versioned schema step. Versions sort lexically.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// MigrationResult lists what a Migrate call did.
type MigrationResult struct {
	Applied []string
	Skipped []string
}

// Conn is the subset of pgxpool.Pool used by Migrate.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SortMigrations orders migrations by version and rejects duplicates.
func SortMigrations(migrations []Migration) ([]Migration, error) {
	sorted := append([]Migration(nil), migrations...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Version == sorted[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %s", sorted[i].Version)
		}
	}
	return sorted, nil
}

// Pending returns migrations whose version is not in applied, in order.
func Pending(migrations []Migration, applied map[string]bool) []Migration {
	var out []Migration
	for _, m := range migrations {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// Migrate applies pending migrations, each in its own transaction.
func Migrate(ctx context.Context, conn Conn, migrations []Migration) (*MigrationResult, error) {
	sorted, err := SortMigrations(migrations)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+MigrationsTable+` (
		version TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, conn)
	if err != nil {
		return nil, err
	}

	result := &MigrationResult{}
	for _, m := range sorted {
		if applied[m.Version] {
			result.Skipped = append(result.Skipped, m.Version)
		}
	}

	for _, m := range Pending(sorted, applied) {
		if err := applyMigration(ctx, conn, m); err != nil {
			return result, fmt.Errorf("migration %s (%s): %w", m.Version, m.Name, err)
		}
		result.Applied = append(result.Applied, m.Version)
	}

	return result, nil
}

func appliedVersions(ctx context.Context, conn Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, `SELECT version FROM `+MigrationsTable)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func applyMigration(ctx context.Context, conn Conn, m Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO `+MigrationsTable+` (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit(ctx)
}
