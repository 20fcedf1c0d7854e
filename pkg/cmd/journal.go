package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/nodeflow/pkg/step"
	"github.com/dukex/nodeflow/pkg/step/redis"
	"github.com/dukex/nodeflow/pkg/step/sqlite"
)

const journalTTL = 7 * 24 * time.Hour

// NewStepJournal returns the durable step journal for url: empty or "memory"
// for an in-process journal, redis:// or rediss:// for Redis and sqlite://path
// for an embedded SQLite file. The returned close function is never nil.
func NewStepJournal(ctx context.Context, url string) (step.Journal, func() error, error) {
	noop := func() error { return nil }

	switch {
	case url == "" || url == "memory":
		return step.NewMemoryJournal(step.WithTTL(journalTTL)), noop, nil
	case strings.HasPrefix(url, "redis://"), strings.HasPrefix(url, "rediss://"):
		client, err := redis.Connect(ctx, url)
		if err != nil {
			return nil, noop, err
		}

		return redis.NewJournal(client, "", journalTTL), client.Close, nil
	case strings.HasPrefix(url, "sqlite://"):
		journal, err := sqlite.Open(ctx, strings.TrimPrefix(url, "sqlite://"))
		if err != nil {
			return nil, noop, err
		}

		return journal, journal.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported step journal: %s", url)
	}
}
