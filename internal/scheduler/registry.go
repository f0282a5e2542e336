// Package scheduler is the cooperative job registry driving every batch
// pipeline: engagement monitor, content scheduler, UGC discovery, weekly
// attribution learning, analytics reports, and the heartbeat sender. Each
// job is coalesced (a next-fire pointer instead of a queue, so backed-up
// fire times never pile up), serialized per id (a per-job mutex blocks
// overlap rather than queuing a second run), and skips misfires older than
// the configured grace period.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/instabrain/core/internal/adapter/observability"
)

// JobFunc is one scheduled pipeline run. ctx is cancelled when the registry
// shuts down; implementations should respect it on every suspension point.
type JobFunc func(ctx context.Context) error

// Status is the point-in-time state of one registered job, returned by
// Registry.Status for the scheduler status endpoint.
type Status struct {
	ID        string
	Paused    bool
	LastRun   time.Time
	NextRun   time.Time
	TotalRuns int64
}

type job struct {
	id      string
	trigger Trigger
	fn      JobFunc

	runMu sync.Mutex // held for the duration of one execution; TryLock enforces max-1-instance

	paused    atomic.Bool
	totalRuns atomic.Int64

	mu      sync.Mutex // guards lastRun/nextRun below
	lastRun time.Time
	nextRun time.Time
}

// Registry holds every scheduled job and drives one goroutine per job.
type Registry struct {
	misfireGrace time.Duration

	mu   sync.RWMutex
	jobs map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Registry. misfireGrace bounds how late a fire time may be
// before it's skipped instead of run.
func New(misfireGrace time.Duration) *Registry {
	return &Registry{misfireGrace: misfireGrace, jobs: map[string]*job{}}
}

// Register adds a job under id. Must be called before Start. Registering the
// same id twice panics — that's a programming error, not a runtime one.
func (r *Registry) Register(id string, trigger Trigger, fn JobFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[id]; exists {
		panic("scheduler: duplicate job id " + id)
	}
	r.jobs[id] = &job{id: id, trigger: trigger, fn: fn}
}

// Start computes each job's first fire time and launches its loop.
func (r *Registry) Start() {
	r.ctx, r.cancel = context.WithCancel(context.Background())

	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	for _, j := range r.jobs {
		j.mu.Lock()
		j.nextRun = j.trigger.Next(now)
		j.mu.Unlock()

		r.wg.Add(1)
		go r.runLoop(j)
	}
	slog.Info("scheduler started", slog.Int("jobs", len(r.jobs)))
}

// Stop cancels every job loop and waits for in-flight runs to settle. It does
// not impose its own timeout — callers that need a bound should race this
// against their own deadline.
func (r *Registry) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	slog.Info("scheduler stopped")
}

func (r *Registry) runLoop(j *job) {
	defer r.wg.Done()
	for {
		j.mu.Lock()
		next := j.nextRun
		j.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		now := time.Now()
		if now.Sub(next) > r.misfireGrace {
			slog.Warn("scheduler job misfired, skipping", slog.String("job_id", j.id), slog.Duration("late_by", now.Sub(next)))
			observability.RecordSchedulerMisfire(j.id)
			r.advance(j, now)
			continue
		}

		if j.paused.Load() {
			r.advance(j, now)
			continue
		}

		r.fire(j, r.ctx)
		r.advance(j, now)
	}
}

func (r *Registry) advance(j *job, from time.Time) {
	j.mu.Lock()
	j.nextRun = j.trigger.Next(from)
	j.mu.Unlock()
}

// fire runs one job execution in its own goroutine so the scheduling loop is
// never blocked by a slow run; runMu.TryLock enforces max_instances=1 by
// skipping (not queuing) a fire that overlaps a still-running execution.
// Returns false if the fire was skipped for overlap.
func (r *Registry) fire(j *job, ctx context.Context) bool {
	if !j.runMu.TryLock() {
		slog.Warn("scheduler job still running, skipping overlapping fire", slog.String("job_id", j.id))
		observability.RecordSchedulerRun(j.id, "skipped_overlap")
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer j.runMu.Unlock()

		j.mu.Lock()
		j.lastRun = time.Now()
		j.mu.Unlock()
		j.totalRuns.Add(1)

		outcome := "success"
		if err := j.fn(ctx); err != nil {
			slog.Error("scheduler job failed", slog.String("job_id", j.id), slog.Any("error", err))
			outcome = "error"
		}
		observability.RecordSchedulerRun(j.id, outcome)
	}()

	return true
}

// TriggerNow runs a job immediately, bypassing its trigger schedule. It still
// respects max_instances=1: a job already running is skipped, not queued.
// Returns false if no job is registered under id, or if the job was already
// running and the fire was skipped for overlap.
func (r *Registry) TriggerNow(id string) bool {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return r.fire(j, r.ctx)
}

// Pause stops a job from firing on its schedule without removing it from the
// registry. Returns false if no job is registered under id.
func (r *Registry) Pause(id string) bool {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	j.paused.Store(true)
	return true
}

// Resume re-enables a paused job. Returns false if no job is registered
// under id.
func (r *Registry) Resume(id string) bool {
	r.mu.RLock()
	j, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	j.paused.Store(false)
	return true
}

// Status returns a point-in-time snapshot for every registered job.
func (r *Registry) Status() []Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Status, 0, len(r.jobs))
	for _, j := range r.jobs {
		j.mu.Lock()
		last, next := j.lastRun, j.nextRun
		j.mu.Unlock()
		out = append(out, Status{
			ID:        j.id,
			Paused:    j.paused.Load(),
			LastRun:   last,
			NextRun:   next,
			TotalRuns: j.totalRuns.Load(),
		})
	}
	return out
}
