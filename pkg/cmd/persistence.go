package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/nodeflow/pkg/persistence"
	"github.com/dukex/nodeflow/pkg/persistence/file"
	"github.com/dukex/nodeflow/pkg/persistence/postgresql"
	"github.com/dukex/nodeflow/pkg/schedule"
	schedulefile "github.com/dukex/nodeflow/pkg/schedule/persistence/file"
	schedulepostgres "github.com/dukex/nodeflow/pkg/schedule/persistence/postgres"
)

// parsePersistenceProvider returns "postgresql" for postgres URLs and "file"
// for file:// URLs and plain paths.
func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "file"
	}
}

func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if parsePersistenceProvider(databaseURL) == "postgresql" {
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	}

	return file.NewPersistence(databaseURL), nil
}

// NewSchedulePersistence stores schedules next to the workflows of databaseURL.
func NewSchedulePersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (schedule.Persistence, error) {
	var (
		p   schedule.Persistence
		err error
	)

	if parsePersistenceProvider(databaseURL) == "postgresql" {
		p, err = schedulepostgres.NewPersistence(ctx, logger, databaseURL)
	} else {
		p, err = schedulefile.NewPersistence(databaseURL)
	}

	if err != nil {
		return nil, err
	}

	return p, nil
}
