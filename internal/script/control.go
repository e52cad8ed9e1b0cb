package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrControlClosed is returned when submitting work to a closed control
// thread.
var ErrControlClosed = errors.New("control thread is closed")

// ErrControlQueueFull is returned by Submit when the queue has no room.
var ErrControlQueueFull = errors.New("control queue full")

// Job is one unit of controller work.
type Job func(c *Controller) error

type request struct {
	job    Job
	result chan error
}

// ControlThread serializes all controller work through a single goroutine.
//
// Loads, unloads and every Lua call they trigger must happen on one
// goroutine. The command loop, the autoload watcher and signal handlers
// hand their work to the ControlThread instead of calling the controller
// directly.
//
//	ct := NewControlThread(ctrl, 0)
//	go ct.Run(ctx)
//	defer ct.Close()
//
//	err := ct.Execute(ctx, func(c *Controller) error {
//	    _, err := c.Load(ctx, "hello.lua", false)
//	    return err
//	})
type ControlThread struct {
	ctrl   *Controller
	queue  chan *request
	closed atomic.Bool
	done   chan struct{}

	closeOnce sync.Once
}

// NewControlThread creates a control thread for ctrl. A queue size of zero
// or less selects 64.
func NewControlThread(ctrl *Controller, queueSize int) *ControlThread {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ControlThread{
		ctrl:  ctrl,
		queue: make(chan *request, queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes jobs until ctx is cancelled or Close is called. Pending
// jobs then fail with the cancellation cause.
func (t *ControlThread) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			t.drain(ctx.Err())
			return
		case <-t.done:
			t.drain(ErrControlClosed)
			return
		case req := <-t.queue:
			req.result <- t.run(req.job)
			close(req.result)
		}
	}
}

func (t *ControlThread) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("control job panic: %v", r)
		}
	}()
	return job(t.ctrl)
}

func (t *ControlThread) drain(err error) {
	for {
		select {
		case req := <-t.queue:
			req.result <- err
			close(req.result)
		default:
			return
		}
	}
}

// Execute runs job on the control goroutine and waits for its result.
func (t *ControlThread) Execute(ctx context.Context, job Job) error {
	if t.closed.Load() {
		return ErrControlClosed
	}

	req := &request{job: job, result: make(chan error, 1)}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return ErrControlClosed
	case t.queue <- req:
	}

	select {
	case <-ctx.Done():
		// Still runs; the result is dropped.
		return ctx.Err()
	case err, ok := <-req.result:
		if !ok {
			return ErrControlClosed
		}
		return err
	}
}

// Submit queues job without waiting. Failures of the job itself are
// reported by the job.
func (t *ControlThread) Submit(job Job) error {
	if t.closed.Load() {
		return ErrControlClosed
	}

	req := &request{job: job, result: make(chan error, 1)}
	select {
	case <-t.done:
		return ErrControlClosed
	case t.queue <- req:
		return nil
	default:
		return ErrControlQueueFull
	}
}

// Close stops the control thread. Queued jobs fail with ErrControlClosed.
func (t *ControlThread) Close() {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		close(t.done)
	})
}

// IsClosed returns true once Close was called.
func (t *ControlThread) IsClosed() bool {
	return t.closed.Load()
}
