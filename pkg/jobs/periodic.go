// Package jobs runs recurring background work inside the API process.
package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of recurring work.
type Task func(context.Context) error

// PeriodicConfig configures a periodic job.
type PeriodicConfig struct {
	Interval   time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// Timeout bounds a single attempt. Zero means no deadline.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Periodic runs a task on a fixed interval. A failed run is retried up to
// MaxRetries times before waiting for the next tick.
type Periodic struct {
	name string
	task Task

	interval   time.Duration
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewPeriodic builds a periodic job. Interval must be positive.
func NewPeriodic(name string, task Task, cfg PeriodicConfig) *Periodic {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Periodic{
		name:       name,
		task:       task,
		interval:   cfg.Interval,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
}

// Start runs the task once immediately and then on every tick. Safe to call once.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.started = true
	go p.loop(ctx)
	p.logger.Sugar().Infow("periodic job started", "job", p.name, "interval", p.interval.String())
}

// Stop cancels the loop and waits for an in-flight run to return.
func (p *Periodic) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.cancel()
	done := p.done
	p.started = false
	p.mu.Unlock()
	<-done
	p.logger.Sugar().Infow("periodic job stopped", "job", p.name)
}

func (p *Periodic) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

// runOnce returns the last error after retries are exhausted.
func (p *Periodic) runOnce(ctx context.Context) error {
	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.retryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err = p.attempt(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Sugar().Warnw("periodic job failed", "job", p.name, "attempt", attempt+1, "error", err)
	}
	p.logger.Sugar().Errorw("periodic job exceeded retries", "job", p.name, "error", err)
	return err
}

func (p *Periodic) attempt(ctx context.Context) error {
	if p.timeout <= 0 {
		return p.task(ctx)
	}
	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.task(runCtx)
}
