// Package queue implements the process-wide admission gate in front of the
// dispatcher: strict FIFO, at most MaxRequests per Window, and admissions
// spaced evenly at Window/MaxRequests.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/scramble-ai/scramble/internal/adapter"
	"github.com/scramble-ai/scramble/internal/clock"
	"github.com/scramble-ai/scramble/internal/metrics"
)

// Task is one unit of admitted work, typically a dispatcher call.
type Task func(ctx context.Context) (adapter.GenerationResult, error)

// Options configures a Queue. Zero values take the defaults of 20 requests
// per minute on the real clock.
type Options struct {
	MaxRequests int
	Window      time.Duration
	Clock       clock.Clock
}

// Queue is safe for concurrent use.
type Queue struct {
	max     int
	window  time.Duration
	spacing time.Duration
	clock   clock.Clock

	mu          sync.Mutex
	count       int
	windowStart time.Time
	lastAdmit   time.Time
	pending     []*Ticket
	timer       clock.Timer
}

func New(opts Options) *Queue {
	if opts.MaxRequests <= 0 {
		opts.MaxRequests = 20
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Queue{
		max:     opts.MaxRequests,
		window:  opts.Window,
		spacing: opts.Window / time.Duration(opts.MaxRequests),
		clock:   opts.Clock,
	}
}

// Ticket tracks one queued task.
type Ticket struct {
	ctx        context.Context
	task       Task
	enqueuedAt time.Time

	done       chan struct{}
	admittedAt time.Time
	result     adapter.GenerationResult
	err        error
}

// Enqueue appends task and returns immediately. The task runs with ctx once
// admitted; if ctx is already done at that point the task is skipped and
// the ticket fails with ctx.Err() without using up a slot.
func (q *Queue) Enqueue(ctx context.Context, task Task) *Ticket {
	t := &Ticket{
		ctx:        ctx,
		task:       task,
		enqueuedAt: q.clock.Now(),
		done:       make(chan struct{}),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, t)
	metrics.QueueDepth.Inc()
	if q.timer == nil {
		q.drainLocked()
	}
	return t
}

// Submit enqueues task and waits for its result.
func (q *Queue) Submit(ctx context.Context, task Task) (adapter.GenerationResult, error) {
	return q.Enqueue(ctx, task).Wait(ctx)
}

// Len returns the number of tasks waiting for admission.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) onTimer() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.timer = nil
	q.drainLocked()
}

// drainLocked admits at most one live entry per call and, while entries
// remain, arranges the next call.
func (q *Queue) drainLocked() {
	for len(q.pending) > 0 {
		now := q.clock.Now()
		if now.Sub(q.windowStart) >= q.window {
			q.count = 0
			q.windowStart = now
		}
		if q.count >= q.max {
			q.scheduleLocked(q.window - now.Sub(q.windowStart))
			return
		}
		if !q.lastAdmit.IsZero() {
			if wait := q.spacing - now.Sub(q.lastAdmit); wait > 0 {
				q.scheduleLocked(wait)
				return
			}
		}

		head := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		metrics.QueueDepth.Dec()

		if err := head.ctx.Err(); err != nil {
			head.finish(now, adapter.GenerationResult{}, err)
			continue
		}

		q.count++
		q.lastAdmit = now
		metrics.QueueWait.Observe(now.Sub(head.enqueuedAt).Seconds())
		go head.run(now)

		if len(q.pending) > 0 {
			q.scheduleLocked(q.spacing)
		}
		return
	}
}

func (q *Queue) scheduleLocked(d time.Duration) {
	if q.timer != nil {
		return
	}
	q.timer = q.clock.AfterFunc(d, q.onTimer)
}

func (t *Ticket) run(admittedAt time.Time) {
	res, err := t.task(t.ctx)
	t.finish(admittedAt, res, err)
}

func (t *Ticket) finish(admittedAt time.Time, res adapter.GenerationResult, err error) {
	t.admittedAt = admittedAt
	t.result = res
	t.err = err
	close(t.done)
}

// Wait blocks until the task has finished or ctx ends. Abandoning a wait
// does not remove the task from the queue.
func (t *Ticket) Wait(ctx context.Context) (adapter.GenerationResult, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return adapter.GenerationResult{}, ctx.Err()
	}
}

// Done is closed once the task has finished or was rejected.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// AdmittedAt returns the clock time the task was admitted. It is only
// meaningful after Done is closed.
func (t *Ticket) AdmittedAt() time.Time {
	<-t.done
	return t.admittedAt
}
