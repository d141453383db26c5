// Package redis provides a Redis persistence backend. Workflow states are updated
// under WATCH so concurrent writers observe version conflicts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowcore/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "flowcore"

type Persistence struct {
	client *goredis.Client
	logger *slog.Logger
	prefix string

	definitions *DefinitionRepository
	workflows   *WorkflowStateRepository
	events      *EventRepository
}

// NewPersistence connects to the Redis server described by a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := goredis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewWithClient(client, logger, defaultPrefix), nil
}

// NewWithClient wraps an existing client; keys are namespaced by prefix.
func NewWithClient(client *goredis.Client, logger *slog.Logger, prefix string) *Persistence {
	p := &Persistence{client: client, logger: logger, prefix: prefix}
	p.definitions = &DefinitionRepository{store: p}
	p.workflows = &WorkflowStateRepository{store: p}
	p.events = &EventRepository{store: p}

	return p
}

func (p *Persistence) Definitions() persistence.DefinitionRepository {
	return p.definitions
}

func (p *Persistence) Workflows() persistence.WorkflowStateRepository {
	return p.workflows
}

func (p *Persistence) Events() persistence.EventRepository {
	return p.events
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func (p *Persistence) key(parts ...string) string {
	return p.prefix + ":" + strings.Join(parts, ":")
}

// getJSON decodes the value at key; a missing key reports goredis.Nil.
func getJSON(ctx context.Context, cmd goredis.Cmdable, key string, target any) error {
	body, err := cmd.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return nil
}

func isMissing(err error) bool {
	return errors.Is(err, goredis.Nil)
}
