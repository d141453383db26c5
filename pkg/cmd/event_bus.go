package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowcore/pkg/channels/gochannel"
	"github.com/dukex/flowcore/pkg/channels/kafka"
	"github.com/dukex/flowcore/pkg/eventbus"
)

var ErrUnsupportedEventBus = errors.New("unsupported event bus provider")

// NewEventBus builds the bus named by provider: "gochannel" (in-process) or "kafka".
func NewEventBus(provider string, brokers []string, consumerGroup string, logger *slog.Logger) (*eventbus.WatermillEventBus, error) {
	adapter := watermill.NewSlogLogger(logger)

	switch provider {
	case "gochannel", "":
		pub, sub, err := gochannel.CreateChannel(adapter)
		if err != nil {
			return nil, err
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(adapter, brokers, consumerGroup)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEventBus, provider)
	}
}

// SplitBrokers parses a comma separated broker list, skipping blanks.
func SplitBrokers(raw string) []string {
	var brokers []string

	for _, broker := range strings.Split(raw, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return brokers
}
