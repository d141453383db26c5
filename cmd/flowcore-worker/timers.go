package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// dueTimerFirer is satisfied by services.Runtime.
type dueTimerFirer interface {
	FireDueTimers(ctx context.Context) (int, error)
}

// TimerPoller dispatches due timer records on a fixed interval.
type TimerPoller struct {
	runtime  dueTimerFirer
	interval time.Duration
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewTimerPoller(runtime dueTimerFirer, interval time.Duration, logger *slog.Logger) *TimerPoller {
	return &TimerPoller{
		runtime:  runtime,
		interval: interval,
		logger:   logger.With("module", "timer-poller"),
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

func (p *TimerPoller) Start(ctx context.Context) error {
	if p.interval <= 0 {
		return fmt.Errorf("timer poll interval must be positive, got %s", p.interval)
	}

	if _, err := p.cron.AddFunc("@every "+p.interval.String(), func() { p.poll(ctx) }); err != nil {
		return err
	}

	p.cron.Start()
	p.logger.InfoContext(ctx, "Timer poller started", "interval", p.interval)

	return nil
}

// Stop waits for a running poll to return.
func (p *TimerPoller) Stop() {
	<-p.cron.Stop().Done()
}

func (p *TimerPoller) poll(ctx context.Context) {
	fired, err := p.runtime.FireDueTimers(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to fire due timers", "error", err, "fired", fired)

		return
	}

	if fired > 0 {
		p.logger.InfoContext(ctx, "Fired due timers", "count", fired)
	}
}
