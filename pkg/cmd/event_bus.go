package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cascadehq/cascade/pkg/channels/gochannel"
	"github.com/cascadehq/cascade/pkg/channels/kafka"
)

// NewPublisher creates the sink event publisher: Kafka for production,
// in-memory go channels for development and tests.
func NewPublisher(provider, serviceName string, logger *slog.Logger) message.Publisher {
	switch provider {
	case "kafka":
		publisher, _, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName)
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka channel: %w", err))
		}

		return publisher
	case "gochannel", "":
		publisher, _, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			panic(fmt.Errorf("failed to create in-memory channel: %w", err))
		}

		return publisher
	default:
		panic("unsupported event bus provider: " + provider)
	}
}
