package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger computes the next fire time strictly after from. Two
// implementations cover every registered job in §4.6: a cron expression for
// fixed daily/weekly schedules, and a fixed interval for the monitor-style
// jobs. Both compose behind one interface so the Registry's loop never needs
// to know which kind of job it's driving.
type Trigger interface {
	Next(from time.Time) time.Time
}

// CronTrigger fires on a standard five-field cron expression, parsed once at
// registration time.
type CronTrigger struct {
	schedule cron.Schedule
}

// NewCronTrigger parses a standard cron expression (minute hour dom month dow).
func NewCronTrigger(expr string) (CronTrigger, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return CronTrigger{}, err
	}
	return CronTrigger{schedule: sched}, nil
}

func (t CronTrigger) Next(from time.Time) time.Time { return t.schedule.Next(from) }

// IntervalTrigger fires every fixed duration, mirroring APScheduler's
// "interval" trigger kind used for the engagement monitor and UGC discovery
// jobs.
type IntervalTrigger struct {
	Interval time.Duration
}

func (t IntervalTrigger) Next(from time.Time) time.Time { return from.Add(t.Interval) }

// MultiTrigger fires at the earliest of several triggers, letting a single
// registered job id (the Registry allows only one) stand in for what
// APScheduler models as several independent jobs — the content scheduler's
// several daily posting times, and the analytics report job's daily and
// weekly cadence.
type MultiTrigger struct {
	Triggers []Trigger
}

func (t MultiTrigger) Next(from time.Time) time.Time {
	var next time.Time
	for _, trig := range t.Triggers {
		candidate := trig.Next(from)
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}
