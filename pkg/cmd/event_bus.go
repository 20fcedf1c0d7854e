// Package cmd builds the shared runtime components of the nodeflow commands
// from their configuration strings.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/nodeflow/pkg/channels/gochannel"
	"github.com/dukex/nodeflow/pkg/channels/kafka"
	"github.com/dukex/nodeflow/pkg/eventbus"
)

// NewEventBus returns the event bus for provider: "gochannel" keeps events in
// process, "kafka" connects to brokers (a comma separated list).
func NewEventBus(provider, brokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "", "gochannel":
		pub, sub := gochannel.CreateChannel(logger)

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(logger, kafka.ParseBrokers(brokers), "nodeflow")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider: %s", provider)
	}
}
