package cmd

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParsePersistenceProvider(t *testing.T) {
	tests := map[string]string{
		"file:///var/lib/flowcore":      "file",
		"/var/lib/flowcore":             "file",
		"postgres://user@localhost/db":  "postgres",
		"postgresql://localhost/db":     "postgresql",
		"redis://localhost:6379/0":      "redis",
		"mongodb://localhost:27017/foo": "mongodb",
	}

	for url, expected := range tests {
		assert.Equal(t, expected, parsePersistenceProvider(url), url)
	}
}

func TestNewPersistence_File(t *testing.T) {
	p, err := NewPersistence(context.Background(), discardLogger(), "file://"+filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)
}

func TestNewPersistence_Unsupported(t *testing.T) {
	_, err := NewPersistence(context.Background(), discardLogger(), "mongodb://localhost")
	require.ErrorIs(t, err, ErrUnsupportedPersistence)
}

func TestNewEventBus(t *testing.T) {
	bus, err := NewEventBus("gochannel", nil, "test", discardLogger())
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", nil, "test", discardLogger())
	require.Error(t, err)

	_, err = NewEventBus("nats", nil, "test", discardLogger())
	require.ErrorIs(t, err, ErrUnsupportedEventBus)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, SplitBrokers(" kafka-1:9092, ,kafka-2:9092"))
	assert.Empty(t, SplitBrokers(""))
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry(discardLogger(), expression.NewEvaluator())

	for _, nodeType := range []string{"startEvent", "endEvent", "userTask", "exclusiveGateway", "inclusiveGateway", "parallelGateway"} {
		_, err := reg.Resolve(nodeType)
		assert.NoError(t, err, nodeType)
	}
}
