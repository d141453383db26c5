package catch

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowcore/pkg/nodes"
	"github.com/robfig/cron/v3"
)

var ErrTimerDefinition = errors.New("timer needs exactly one of 'duration', 'cron' or 'at'")

// Timer computes when a timer node is due. The core never schedules it; an
// external scheduler dispatches the event record once DueAt passed.
type Timer struct {
	duration time.Duration
	schedule cron.Schedule
	at       *time.Time
}

// ParseTimer reads the timer fields of a node configuration.
func ParseTimer(config map[string]any) (*Timer, error) {
	durationStr, err := nodes.String(config, "duration")
	if err != nil {
		return nil, err
	}

	cronExpression, err := nodes.String(config, "cron")
	if err != nil {
		return nil, err
	}

	atStr, err := nodes.String(config, "at")
	if err != nil {
		return nil, err
	}

	set := 0
	for _, v := range []string{durationStr, cronExpression, atStr} {
		if v != "" {
			set++
		}
	}

	if set != 1 {
		return nil, ErrTimerDefinition
	}

	timer := &Timer{}

	switch {
	case durationStr != "":
		timer.duration, err = time.ParseDuration(durationStr)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", durationStr, err)
		}

		if timer.duration <= 0 {
			return nil, fmt.Errorf("duration %q must be positive", durationStr)
		}
	case cronExpression != "":
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

		timer.schedule, err = parser.Parse(cronExpression)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", cronExpression, err)
		}
	default:
		at, err := time.Parse(time.RFC3339, atStr)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", atStr, err)
		}

		timer.at = &at
	}

	return timer, nil
}

// DueAt returns the instant the timer fires for an activation at now.
func (t *Timer) DueAt(now time.Time) time.Time {
	switch {
	case t.schedule != nil:
		return t.schedule.Next(now)
	case t.at != nil:
		return *t.at
	default:
		return now.Add(t.duration)
	}
}
