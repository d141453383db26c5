//go:build integration

package kafka_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowcore/pkg/channels/kafka"
	"github.com/dukex/flowcore/pkg/eventbus"
	"github.com/dukex/flowcore/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func startKafka(t *testing.T, ctx context.Context) []string {
	t.Helper()

	kafkaContainer, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("flowcore-test"),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(kafkaContainer))
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)

	admin, err := sarama.NewClusterAdmin(brokers, sarama.NewConfig())
	require.NoError(t, err)

	defer func() { _ = admin.Close() }()

	err = admin.CreateTopic(events.Topic, &sarama.TopicDetail{NumPartitions: 3, ReplicationFactor: 1}, false)
	require.NoError(t, err)

	return brokers
}

func TestKafkaChannel_DeliversInKeyOrder(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	brokers := startKafka(t, ctx)

	pub, sub, err := kafka.CreateChannel(watermill.NopLogger{}, brokers, "integration")
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = bus.Close() })

	received := make(chan string, 3)

	require.NoError(t, eventbus.Handlers{
		events.ProcessStartedEvent: func(_ context.Context, event any) error {
			received <- event.(*events.ProcessStarted).ProcessID

			return nil
		},
	}.Register(bus))

	require.NoError(t, bus.Subscribe(ctx))

	for _, processID := range []string{"p1", "p2", "p3"} {
		require.NoError(t, bus.Publish(ctx, "wf-42", events.ProcessStarted{
			BaseEvent: events.NewBaseEvent(events.ProcessStartedEvent, "wf-42"),
			ProcessID: processID,
		}))
	}

	var order []string

	for len(order) < 3 {
		select {
		case processID := <-received:
			order = append(order, processID)
		case <-ctx.Done():
			t.Fatalf("received %v before timeout", order)
		}
	}

	assert.Equal(t, []string{"p1", "p2", "p3"}, order)
}
