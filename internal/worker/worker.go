// Package worker runs the queue worker pool: three cooperative loops that
// drain the outbound action queue and execute jobs against the backend
// proxy, with bounded graceful shutdown.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/instabrain/core/internal/domain"
)

// Config bundles the worker pool's timing knobs, sourced from config.Config.
type Config struct {
	HighPollInterval     time.Duration
	NormalPollInterval   time.Duration
	NormalPollStagger    time.Duration
	ScheduledDrainPeriod time.Duration
	LockTTL              time.Duration
	StoreDrainBatch      int
	ShutdownGrace        time.Duration
}

// Pool drains the queue's high/normal priority lanes and periodically
// promotes due scheduled retries and store-fallback rows, executing jobs
// against a domain.BackendProxy.
type Pool struct {
	queue   domain.Queue
	backend domain.BackendProxy
	posts   domain.ScheduledPostRepository
	audit   domain.AuditRepository
	cfg     Config

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup // loop goroutines
	inFlight sync.Map       // job_id -> struct{}, jobs currently executing
}

// New constructs a Pool. posts and audit may be nil in configurations that
// don't need publish_post settlement or audit logging (e.g. tests).
func New(queue domain.Queue, backend domain.BackendProxy, posts domain.ScheduledPostRepository, audit domain.AuditRepository, cfg Config) *Pool {
	return &Pool{queue: queue, backend: backend, posts: posts, audit: audit, cfg: cfg}
}

// Start launches the three background loops. Safe to call once.
func (p *Pool) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(3)
	go p.priorityLoop(domain.PriorityHigh, p.cfg.HighPollInterval, 0)
	go p.priorityLoop(domain.PriorityNormal, p.cfg.NormalPollInterval, p.cfg.NormalPollStagger)
	go p.scheduledRetryLoop()

	slog.Info("worker pool started", slog.Duration("high_poll", p.cfg.HighPollInterval), slog.Duration("normal_poll", p.cfg.NormalPollInterval))
}

// Stop signals the loops to exit and waits up to ShutdownGrace for
// in-flight jobs to finish before returning.
func (p *Pool) Stop() {
	slog.Info("worker pool stopping", slog.Int("in_flight", p.inFlightCount()))
	p.cancel()

	deadline := time.Now().Add(p.cfg.ShutdownGrace)
	for p.inFlightCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(250 * time.Millisecond)
	}
	if n := p.inFlightCount(); n > 0 {
		slog.Warn("worker pool shutdown grace exceeded, jobs still in flight", slog.Int("count", n))
	}
	done := make(chan struct{})
	go func() { p.wg.Wait(); close(done) }()
	select {
	case <-done:
		slog.Info("worker pool stopped")
	case <-time.After(time.Until(deadline)):
		slog.Warn("worker pool stop returned before every job goroutine exited")
	}
}

func (p *Pool) inFlightCount() int {
	n := 0
	p.inFlight.Range(func(_, _ any) bool { n++; return true })
	return n
}

// priorityLoop repeatedly dequeues jobs from one priority lane, firing each
// onto its own goroutine so a slow job never blocks the lane.
func (p *Pool) priorityLoop(priority domain.JobPriority, pollInterval, stagger time.Duration) {
	defer p.wg.Done()
	if stagger > 0 {
		select {
		case <-time.After(stagger):
		case <-p.ctx.Done():
			return
		}
	}
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		job, err := p.queue.Dequeue(p.ctx, priority)
		if err != nil {
			slog.Error("queue loop dequeue failed", slog.String("priority", string(priority)), slog.Any("error", err))
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			select {
			case <-time.After(pollInterval):
			case <-p.ctx.Done():
				return
			}
			continue
		}

		p.wg.Add(1)
		go func(j domain.Job) {
			defer p.wg.Done()
			p.executeJob(j)
		}(*job)
	}
}

// scheduledRetryLoop periodically moves due scheduled retries onto their
// priority lane and drains any rows staged in the store fallback table.
func (p *Pool) scheduledRetryLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-time.After(p.cfg.ScheduledDrainPeriod):
		}

		moved, err := p.queue.DrainScheduled(p.ctx)
		if err != nil {
			slog.Error("scheduled retry loop drain_scheduled failed", slog.Any("error", err))
		}
		drained, err := p.queue.DrainStoreFallback(p.ctx, p.cfg.StoreDrainBatch)
		if err != nil {
			slog.Error("scheduled retry loop drain_store_fallback failed", slog.Any("error", err))
		}
		if moved > 0 || drained > 0 {
			slog.Debug("scheduled retry loop", slog.Int("moved", moved), slog.Int("drained", drained))
		}
	}
}
