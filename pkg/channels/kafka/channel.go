// Package kafka provides the Kafka-backed pub/sub used between nodeflow processes.
package kafka

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

var ErrNoBrokers = errors.New("no kafka brokers configured")

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(list string) []string {
	var brokers []string

	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return brokers
}

// CreateChannel builds a publisher and a subscriber in consumer group
// "cg-<serviceName>" reading from the oldest offset.
func CreateChannel(logger *slog.Logger, brokers []string, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	wmLogger := watermill.NewSlogLogger(logger)

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         "cg-" + serviceName,
			OTELEnabled:           true,
		},
		wmLogger,
	)
	if err != nil {
		return nil, nil, err
	}

	saramaPublisherConfig := sarama.NewConfig()
	saramaPublisherConfig.Producer.Return.Successes = true

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           true,
		},
		wmLogger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, err
	}

	return publisher, subscriber, nil
}
