package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowcore/pkg/persistence"
	"github.com/dukex/flowcore/pkg/persistence/file"
	"github.com/dukex/flowcore/pkg/persistence/postgresql"
	"github.com/dukex/flowcore/pkg/persistence/redis"
)

var ErrUnsupportedPersistence = errors.New("unsupported persistence provider")

// NewPersistence picks the storage by URL scheme. A bare path is a file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch provider := parsePersistenceProvider(databaseURL); provider {
	case "file":
		return file.NewPersistence(databaseURL), nil
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	case "redis", "rediss":
		p, err := redis.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return p, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPersistence, provider)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
