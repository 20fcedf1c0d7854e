// Package postgres stores schedules in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/dukex/nodeflow/pkg/models"
	"github.com/dukex/nodeflow/pkg/persistence"
	"github.com/dukex/nodeflow/pkg/schedule"
	"github.com/dukex/nodeflow/pkg/persistence/sqlbase"
)

const migrationsTable = "schedule_schema_migrations"

const columns = `id, workflow_id, node_id, schedule_type, timezone, interval_value, interval_unit,
	hour, minute, days_of_week, day_of_month, cron_expression, enabled,
	next_run_at, last_run_at, start_date, end_date, created_at, updated_at`

type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ schedule.Persistence = (*Persistence)(nil)

// NewPersistence connects to databaseURL and runs pending schedule migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "schedule_postgres_persistence")

	err = sqlbase.NewMigrationManager(logger, database, migrationsTable, migrations()).RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run schedule migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

func (p *Persistence) Upsert(ctx context.Context, s *models.Schedule) error {
	query := `
		INSERT INTO schedules (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (workflow_id, node_id)
		DO UPDATE SET
			id = EXCLUDED.id,
			schedule_type = EXCLUDED.schedule_type,
			timezone = EXCLUDED.timezone,
			interval_value = EXCLUDED.interval_value,
			interval_unit = EXCLUDED.interval_unit,
			hour = EXCLUDED.hour,
			minute = EXCLUDED.minute,
			days_of_week = EXCLUDED.days_of_week,
			day_of_month = EXCLUDED.day_of_month,
			cron_expression = EXCLUDED.cron_expression,
			enabled = EXCLUDED.enabled,
			next_run_at = EXCLUDED.next_run_at,
			last_run_at = EXCLUDED.last_run_at,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			updated_at = EXCLUDED.updated_at
	`

	days := make(pq.Int64Array, len(s.DaysOfWeek))
	for i, d := range s.DaysOfWeek {
		days[i] = int64(d)
	}

	_, err := p.db.ExecContext(ctx, query,
		s.ID,
		s.WorkflowID,
		s.NodeID,
		string(s.ScheduleType),
		s.Timezone,
		s.IntervalValue,
		string(s.IntervalUnit),
		s.Hour,
		s.Minute,
		days,
		s.DayOfMonth,
		s.CronExpression,
		s.Enabled,
		s.NextRunAt,
		s.LastRunAt,
		s.StartDate,
		s.EndDate,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to save schedule", "schedule_id", s.ID, "error", err)

		return persistence.NewScheduleError("Upsert", s.ID, err)
	}

	return nil
}

func (p *Persistence) ByNode(ctx context.Context, workflowID, nodeID string) (*models.Schedule, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM schedules WHERE workflow_id = $1 AND node_id = $2`, workflowID, nodeID)

	s, err := scanSchedule(row)
	if err != nil {
		return nil, persistence.NewScheduleError("ByNode", workflowID+"/"+nodeID, err)
	}

	return s, nil
}

func (p *Persistence) ByID(ctx context.Context, id string) (*models.Schedule, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+columns+` FROM schedules WHERE id = $1`, id)

	s, err := scanSchedule(row)
	if err != nil {
		return nil, persistence.NewScheduleError("ByID", id, err)
	}

	return s, nil
}

func (p *Persistence) Delete(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)

	return p.expectRow("Delete", id, result, err)
}

func (p *Persistence) SetEnabled(ctx context.Context, id string, enabled bool) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE schedules
		SET enabled = $2,
			next_run_at = CASE WHEN $2 THEN next_run_at ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1`, id, enabled)

	return p.expectRow("SetEnabled", id, result, err)
}

// Enabled returns enabled schedules ordered by next run.
func (p *Persistence) Enabled(ctx context.Context) ([]*models.Schedule, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+columns+` FROM schedules WHERE enabled ORDER BY next_run_at ASC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("failed to query enabled schedules: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			p.logger.ErrorContext(ctx, "Failed to close rows", "error", closeErr)
		}
	}()

	var schedules []*models.Schedule

	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}

		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedules: %w", err)
	}

	return schedules, nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Close() error {
	return p.db.Close()
}

func (p *Persistence) expectRow(op, id string, result sql.Result, err error) error {
	if err != nil {
		return persistence.NewScheduleError(op, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewScheduleError(op, id, err)
	}

	if affected == 0 {
		return persistence.NewScheduleError(op, id, persistence.ErrScheduleNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row scanner) (*models.Schedule, error) {
	var (
		s            models.Schedule
		scheduleType string
		intervalUnit string
		days         pq.Int64Array
		nextRunAt    sql.NullTime
		lastRunAt    sql.NullTime
		startDate    sql.NullTime
		endDate      sql.NullTime
	)

	err := row.Scan(
		&s.ID,
		&s.WorkflowID,
		&s.NodeID,
		&scheduleType,
		&s.Timezone,
		&s.IntervalValue,
		&intervalUnit,
		&s.Hour,
		&s.Minute,
		&days,
		&s.DayOfMonth,
		&s.CronExpression,
		&s.Enabled,
		&nextRunAt,
		&lastRunAt,
		&startDate,
		&endDate,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrScheduleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule: %w", err)
	}

	s.ScheduleType = models.ScheduleType(scheduleType)
	s.IntervalUnit = models.IntervalUnit(intervalUnit)

	for _, d := range days {
		s.DaysOfWeek = append(s.DaysOfWeek, int(d))
	}

	s.NextRunAt = nullTime(nextRunAt)
	s.LastRunAt = nullTime(lastRunAt)
	s.StartDate = nullTime(startDate)
	s.EndDate = nullTime(endDate)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()

	return &s, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	utc := t.Time.UTC()

	return &utc
}
