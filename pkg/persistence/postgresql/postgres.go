// Package postgresql provides PostgreSQL persistence for workflows.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/dukex/nodeflow/pkg/persistence"
	"github.com/dukex/nodeflow/pkg/persistence/sqlbase"
)

const migrationsTable = "workflow_schema_migrations"

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
	*WorkflowRepository
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence connects to databaseURL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "postgresql_persistence")

	err = sqlbase.NewMigrationManager(logger, database, migrationsTable, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:                 database,
		logger:             logger,
		WorkflowRepository: NewWorkflowRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
