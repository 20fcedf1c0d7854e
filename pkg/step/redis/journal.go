// Package redis provides a step journal stored in Redis hashes, one hash per run.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "nodeflow:"

type Journal struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewJournal creates a journal on client. A zero ttl keeps entries forever.
func NewJournal(client *goredis.Client, prefix string, ttl time.Duration) *Journal {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Journal{client: client, prefix: prefix, ttl: ttl}
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func (j *Journal) key(runID string) string {
	return j.prefix + "steps:" + runID
}

func (j *Journal) Load(ctx context.Context, runID, name string) ([]byte, bool, error) {
	payload, err := j.client.HGet(ctx, j.key(runID), name).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	return payload, true, nil
}

func (j *Journal) Save(ctx context.Context, runID, name string, payload []byte) error {
	key := j.key(runID)

	pipe := j.client.TxPipeline()
	pipe.HSet(ctx, key, name, payload)

	if j.ttl > 0 {
		pipe.Expire(ctx, key, j.ttl)
	}

	_, err := pipe.Exec(ctx)

	return err
}
