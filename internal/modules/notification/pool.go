package notification

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/georgemunganga/crafty-backend/internal/config"
)

// Pool runs the delivery workers. Each reserved job gets one attempt; a
// failed attempt is parked with exponential backoff until its attempts are
// used up, after which it moves to the failed history for good.
type Pool struct {
	queue    Queue
	renderer *Renderer
	mailer   Mailer
	metrics  *PoolMetrics

	concurrency  int
	attempts     int
	backoff      time.Duration
	jobTimeout   time.Duration
	pollInterval time.Duration
	statsEvery   time.Duration
}

func NewPool(queue Queue, renderer *Renderer, mailer Mailer, metrics *PoolMetrics, cfg config.QueueConfig) *Pool {
	p := &Pool{
		queue:        queue,
		renderer:     renderer,
		mailer:       mailer,
		metrics:      metrics,
		concurrency:  cfg.Concurrency,
		attempts:     cfg.Attempts,
		backoff:      cfg.Backoff,
		jobTimeout:   cfg.JobTimeout,
		pollInterval: cfg.PollInterval,
		statsEvery:   15 * time.Second,
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	if p.attempts < 1 {
		p.attempts = 1
	}
	if p.jobTimeout <= 0 {
		p.jobTimeout = 30 * time.Second
	}
	if p.pollInterval <= 0 {
		p.pollInterval = time.Second
	}
	return p
}

// Run blocks until ctx is cancelled. Jobs already being delivered are
// allowed to finish their attempt.
func (p *Pool) Run(ctx context.Context) error {
	if n, err := p.queue.Recover(ctx); err != nil {
		return err
	} else if n > 0 {
		log.Printf("[worker] recovered %d interrupted jobs", n)
	}
	log.Printf("[worker] starting %d workers", p.concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		g.Go(func() error { return p.work(ctx) })
	}
	g.Go(func() error { return p.watch(ctx) })
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pool) work(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		job, err := p.queue.Reserve(ctx, p.pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[worker] reserve: %v", err)
			sleep(ctx, p.pollInterval)
			continue
		}
		if job == nil {
			continue
		}
		p.Process(context.WithoutCancel(ctx), job)
	}
}

func (p *Pool) watch(ctx context.Context) error {
	if p.metrics == nil {
		return nil
	}
	t := time.NewTicker(p.statsEvery)
	defer t.Stop()
	for {
		if s, err := p.queue.Stats(ctx); err == nil {
			p.metrics.observe(s)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Process makes one delivery attempt for a reserved job and records the outcome.
func (p *Pool) Process(ctx context.Context, job *Job) {
	job.Attempts++
	maxAttempts := job.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = p.attempts
	}

	err := p.deliver(ctx, job)
	switch {
	case err == nil:
		p.count(job, "completed")
		if err := p.queue.Complete(ctx, job); err != nil {
			log.Printf("[worker] job %s delivered but not marked complete: %v", job.ID, err)
		}
		log.Printf("[worker] job %s completed", job.ID)

	case errors.Is(err, ErrUnknownKind), errors.Is(err, ErrNoRecipient), job.Attempts >= maxAttempts:
		p.count(job, "failed")
		if ferr := p.queue.Fail(ctx, job, err); ferr != nil {
			log.Printf("[worker] job %s: record failure: %v", job.ID, ferr)
		}
		log.Printf("[worker] job %s failed after %d attempt(s): %v", job.ID, job.Attempts, err)

	default:
		delay := p.Backoff(job.Attempts)
		job.LastError = err.Error()
		p.count(job, "retried")
		if rerr := p.queue.Retry(ctx, job, delay); rerr != nil {
			log.Printf("[worker] job %s: schedule retry: %v", job.ID, rerr)
		}
		log.Printf("[worker] job %s attempt %d failed, retrying in %s: %v", job.ID, job.Attempts, delay, err)
	}
}

func (p *Pool) deliver(ctx context.Context, job *Job) error {
	msg, err := p.renderer.Render(job)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.jobTimeout)
	defer cancel()
	return p.mailer.Send(ctx, msg)
}

// Backoff is base × 2^(attempt-1).
func (p *Pool) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.backoff << (attempt - 1)
}

func (p *Pool) count(job *Job, outcome string) {
	if p.metrics != nil {
		p.metrics.Deliveries.WithLabelValues(string(job.Kind), outcome).Inc()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
