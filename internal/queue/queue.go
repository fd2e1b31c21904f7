// Hestia - Lifestyle-Aware Property Recommendation Engine
// Copyright 2026 M. Ledesma (mledesma)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mledesma/hestia

// Package queue serializes per-owner catalog refreshes through a strict
// FIFO, single-consumer work queue.
//
// Submission never blocks (the queue is bounded only by memory) and
// returns the job's position for estimated-wait display. One worker drains
// the queue; a failing job is recorded as failed and the loop continues
// with the next job. Terminal job entries are removed on the first
// successful status read so the status map cannot grow without bound.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mledesma/hestia/internal/logging"
	"github.com/mledesma/hestia/internal/metrics"
)

// Status is the lifecycle state of an update job. Transitions are
// monotonic: queued -> processing -> completed|failed.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusUnknown    Status = "unknown"
)

// terminal reports whether a status admits no further transitions.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Processor performs the refresh for one owner: fetch the authoritative
// data, replace the owner's partition, persist a snapshot.
type Processor interface {
	ProcessOwner(ctx context.Context, ownerID string) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, ownerID string) error

// ProcessOwner implements Processor.
func (f ProcessorFunc) ProcessOwner(ctx context.Context, ownerID string) error {
	return f(ctx, ownerID)
}

// Config holds queue configuration.
type Config struct {
	// JobTimeout bounds a single job's external calls so a hung upstream
	// cannot starve the single consumer. Default: 2m
	JobTimeout time.Duration `koanf:"job_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{JobTimeout: 2 * time.Minute}
}

// Job is one pending or in-flight catalog refresh.
type Job struct {
	ID         string
	OwnerID    string
	EnqueuedAt time.Time
	Status     Status
}

// Queue is the FIFO update queue plus its worker lifecycle.
type Queue struct {
	processor Processor
	config    Config
	logger    zerolog.Logger

	mu         sync.Mutex
	pending    []*Job          // FIFO order; head is pending[0]
	jobs       map[string]*Job // by job ID, including the in-flight job
	processing bool

	// notify wakes the worker when work arrives; buffered so Submit
	// never blocks on it.
	notify chan struct{}

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates an update queue draining into the given processor.
func New(processor Processor, cfg Config) *Queue {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultConfig().JobTimeout
	}
	return &Queue{
		processor: processor,
		config:    cfg,
		logger:    logging.With().Str("component", "update-queue").Logger(),
		jobs:      make(map[string]*Job),
		notify:    make(chan struct{}, 1),
	}
}

// Submit enqueues a refresh for ownerID and returns the job ID and the
// number of jobs ahead of it (the in-flight job counts as one).
func (q *Queue) Submit(ownerID string) (string, int) {
	job := &Job{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		EnqueuedAt: time.Now(),
		Status:     StatusQueued,
	}

	q.mu.Lock()
	position := len(q.pending)
	if q.processing {
		position++
	}
	q.pending = append(q.pending, job)
	q.jobs[job.ID] = job
	depth := len(q.pending)
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	metrics.QueueJobsSubmitted.Inc()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	q.logger.Debug().Str("job_id", job.ID).Str("owner_id", ownerID).Int("position", position).Msg("Job submitted")
	return job.ID, position
}

// Status returns the job's current status. A terminal status is removed on
// this read; a later read of the same ID reports unknown.
func (q *Queue) Status(jobID string) Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return StatusUnknown
	}
	status := job.Status
	if status.terminal() {
		delete(q.jobs, jobID)
	}
	return status
}

// Depth returns the number of queued (not yet started) jobs.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Start launches the worker loop. It returns an error if already running.
func (q *Queue) Start(ctx context.Context) error {
	q.runMu.Lock()
	defer q.runMu.Unlock()
	if q.running {
		return fmt.Errorf("update queue already running")
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.doneCh = make(chan struct{})

	q.logger.Info().Dur("job_timeout", q.config.JobTimeout).Msg("Starting update queue worker")
	go q.run(ctx)
	return nil
}

// Stop stops the worker and waits for the in-flight job to finish.
func (q *Queue) Stop() error {
	q.runMu.Lock()
	defer q.runMu.Unlock()
	if !q.running {
		return nil
	}
	close(q.stopCh)
	<-q.doneCh
	q.running = false
	q.logger.Info().Msg("Update queue worker stopped")
	return nil
}

// run is the single-consumer worker loop. Jobs are processed one at a
// time in submission order; a failure marks the job failed and the loop
// moves on.
func (q *Queue) run(ctx context.Context) {
	defer close(q.doneCh)

	for {
		job := q.dequeue()
		if job == nil {
			select {
			case <-q.notify:
				continue
			case <-q.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}

		q.process(ctx, job)

		select {
		case <-q.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

// dequeue pops the head job and marks it processing, or returns nil when
// the queue is empty.
func (q *Queue) dequeue() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	job.Status = StatusProcessing
	q.processing = true
	metrics.QueueDepth.Set(float64(len(q.pending)))
	return job
}

// process runs one job under the configured timeout and records the
// outcome. Processor panics are contained so a poisoned job cannot kill
// the worker.
func (q *Queue) process(ctx context.Context, job *Job) {
	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, q.config.JobTimeout)
	defer cancel()

	err := q.safeProcess(jobCtx, job.OwnerID)

	q.mu.Lock()
	if !job.Status.terminal() {
		if err != nil {
			job.Status = StatusFailed
		} else {
			job.Status = StatusCompleted
		}
	}
	q.processing = false
	q.mu.Unlock()

	elapsed := time.Since(start)
	metrics.QueueJobDuration.Observe(elapsed.Seconds())
	if err != nil {
		metrics.QueueJobsTotal.WithLabelValues("failed").Inc()
		q.logger.Error().Err(err).
			Str("job_id", job.ID).
			Str("owner_id", job.OwnerID).
			Dur("elapsed", elapsed).
			Msg("Job failed")
		return
	}
	metrics.QueueJobsTotal.WithLabelValues("completed").Inc()
	q.logger.Info().
		Str("job_id", job.ID).
		Str("owner_id", job.OwnerID).
		Dur("elapsed", elapsed).
		Msg("Job completed")
}

// safeProcess invokes the processor, converting a panic into an error.
func (q *Queue) safeProcess(ctx context.Context, ownerID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()
	return q.processor.ProcessOwner(ctx, ownerID)
}
