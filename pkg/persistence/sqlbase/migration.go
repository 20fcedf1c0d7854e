// Package sqlbase provides the base functionality for SQL database persistence.
package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// MigrationManager applies numbered schema migrations once each, in
// ascending order, recording them in its own migrations table.
type MigrationManager struct {
	db         *sql.DB
	logger     *slog.Logger
	table      string
	migrations map[int]string
}

// NewMigrationManager creates a migration manager recording applied versions
// in table. Several stores may share one database with distinct tables.
func NewMigrationManager(logger *slog.Logger, db *sql.DB, table string, migrations map[int]string) *MigrationManager {
	return &MigrationManager{
		db:         db,
		logger:     logger.With("migrations_table", table),
		table:      table,
		migrations: migrations,
	}
}

// RunMigrations handles database schema creation and updates.
func (m *MigrationManager) RunMigrations(ctx context.Context) error {
	m.logger.InfoContext(ctx, "Starting database migrations")

	err := m.createMigrationsTable(ctx)
	if err != nil {
		return err
	}

	currentVersion, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "Current schema version", "version", currentVersion)

	latest := m.LatestVersion()
	if currentVersion < latest {
		err := m.applyMigrations(ctx, currentVersion)
		if err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	m.logger.InfoContext(ctx, "Database migrations completed", "version", latest)

	return nil
}

// LatestVersion is the highest migration version known to the manager.
func (m *MigrationManager) LatestVersion() int {
	if len(m.migrations) == 0 {
		return 0
	}

	return slices.Max(slices.Collect(maps.Keys(m.migrations)))
}

func (m *MigrationManager) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS `+m.table+` (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create %s table: %w", m.table, err)
	}

	return nil
}

// CurrentVersion returns the highest applied version, 0 when none.
func (m *MigrationManager) CurrentVersion(ctx context.Context) (int, error) {
	var version int

	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM "+m.table).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to query current schema version: %w", err)
	}

	return version, nil
}

func (m *MigrationManager) applyMigrations(ctx context.Context, fromVersion int) error {
	versions := slices.Sorted(maps.Keys(m.migrations))

	for _, version := range versions {
		if version <= fromVersion {
			continue
		}

		m.logger.InfoContext(ctx, "Applying migration", "version", version)

		transaction, err := m.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", version, err)
		}

		_, err = transaction.ExecContext(ctx, m.migrations[version])
		if err != nil {
			_ = transaction.Rollback()

			return fmt.Errorf("failed to execute migration %d: %w", version, err)
		}

		_, err = transaction.ExecContext(ctx, "INSERT INTO "+m.table+" (version) VALUES ($1)", version)
		if err != nil {
			_ = transaction.Rollback()

			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}

		err = transaction.Commit()
		if err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}

		m.logger.InfoContext(ctx, "Migration applied successfully", "version", version)
	}

	return nil
}
