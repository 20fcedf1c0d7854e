// Package gochannel provides the in-process pub/sub used when no broker is configured.
package gochannel

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const outputBuffer = 1000

// CreateChannel returns one GoChannel serving as both publisher and
// subscriber. Messages live only as long as the process.
func CreateChannel(logger *slog.Logger) (*gochannel.GoChannel, *gochannel.GoChannel) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            outputBuffer,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(logger),
	)

	return pubSub, pubSub
}
