package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/pairs/pkg/common"
)

type Rule int

const (
	Daily Rule = iota
	Weekly
	MonthStart
)

func (r Rule) String() string {
	switch r {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case MonthStart:
		return "month_start"
	default:
		return "unknown"
	}
}

func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily":
		return Daily, nil
	case "weekly":
		return Weekly, nil
	case "month_start", "monthly":
		return MonthStart, nil
	default:
		return 0, fmt.Errorf("unknown schedule rule %q", s)
	}
}

type Callback func(ctx context.Context, t time.Time)

type Option func(*Scheduler)

func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.loc = loc
	}
}

type entry struct {
	name     string
	rule     Rule
	delay    time.Duration
	callback Callback

	period  int64
	due     time.Time
	pending bool
	started bool
}

// Scheduler runs callbacks on event time. The clock is the timestamp of the
// observations fed through OnObservation, so a replay schedules exactly like a
// live session would. Every entry fires at the first observation that is at
// least delay past the first observation of its period, which includes the
// very first period seen.
type Scheduler struct {
	logger  *zap.Logger
	loc     *time.Location
	entries []*entry
}

func NewScheduler(logger *zap.Logger, options ...Option) *Scheduler {
	s := &Scheduler{
		logger: logger,
		loc:    time.UTC,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Scheduler) Every(name string, rule Rule, delay time.Duration, callback Callback) {
	s.entries = append(s.entries, &entry{
		name:     name,
		rule:     rule,
		delay:    delay,
		callback: callback,
	})
}

func (s *Scheduler) OnObservation(ctx context.Context, obs common.Observation) {
	s.Advance(ctx, obs.TimeStamp)
}

// Advance moves the scheduler clock to t and runs every callback that became
// due. Callbacks run synchronously, in registration order.
func (s *Scheduler) Advance(ctx context.Context, t time.Time) {
	for _, e := range s.entries {
		period := periodKey(e.rule, t.In(s.loc))
		if !e.started || period != e.period {
			if e.pending {
				s.logger.Debug("scheduled run superseded by a new period",
					zap.String("name", e.name),
					zap.Time("due", e.due))
			}
			e.started = true
			e.period = period
			e.due = t.Add(e.delay)
			e.pending = true
		}

		if e.pending && !t.Before(e.due) {
			e.pending = false
			s.logger.Debug("running scheduled callback",
				zap.String("name", e.name),
				zap.Stringer("rule", e.rule),
				zap.Time("ts", t))
			e.callback(ctx, t)
		}
	}
}

func periodKey(rule Rule, t time.Time) int64 {
	switch rule {
	case Weekly:
		year, week := t.ISOWeek()
		return int64(year)*100 + int64(week)
	case MonthStart:
		return int64(t.Year())*100 + int64(t.Month())
	default:
		return int64(t.Year())*1000 + int64(t.YearDay())
	}
}
