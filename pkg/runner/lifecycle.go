package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// LifecycleRunner runs one task to completion, then drains. A signal
// cancelling the outer context interrupts the task through its context;
// draining happens either way.
type LifecycleRunner struct {
	state    int32
	cancel   context.CancelFunc
	onceStop sync.Once
	hooks    Hooks
	drainer  Drainer
	stopErr  error
	timeout  time.Duration
}

func NewLifecycleRunner(drainer Drainer, hooks Hooks, timeout time.Duration) *LifecycleRunner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LifecycleRunner{
		state:   int32(StateNew),
		cancel:  func() {},
		hooks:   hooks,
		drainer: drainer,
		timeout: timeout,
	}
}

// Run executes task and drains on the way out. The task's error wins
// over drain errors. A runner is single-use.
func (r *LifecycleRunner) Run(ctx context.Context, task func(ctx context.Context) error) error {
	if !r.casState(StateNew, StateStarting) {
		return errors.New("invalid state transition")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	defer cancel()

	if r.hooks.OnStart != nil {
		r.hooks.OnStart()
	}
	r.setState(StateRunning)

	done := make(chan error, 1)
	go func() { done <- task(runCtx) }()

	var taskErr error
	select {
	case taskErr = <-done:
	case <-runCtx.Done():
		// Give the task its cancellation window before draining anyway.
		select {
		case taskErr = <-done:
		case <-time.After(r.timeout):
			taskErr = errors.New("task did not stop after cancellation")
		}
		if taskErr == nil {
			taskErr = runCtx.Err()
		}
	}

	stopErr := r.stop()
	if taskErr != nil {
		return taskErr
	}
	return stopErr
}

// Stop cancels the running task and drains.
func (r *LifecycleRunner) Stop() error {
	r.cancel()
	return r.stop()
}

func (r *LifecycleRunner) State() State {
	return State(atomic.LoadInt32(&r.state))
}

func (r *LifecycleRunner) stop() error {
	r.onceStop.Do(func() {
		r.setState(StateDraining)
		if r.drainer != nil {
			done := make(chan error, 1)
			go func() { done <- r.drainer.Drain() }()
			select {
			case err := <-done:
				r.stopErr = err
			case <-time.After(r.timeout):
				r.stopErr = errors.New("drain timeout")
			}
		}
		if r.hooks.OnStop != nil {
			r.hooks.OnStop()
		}
		r.setState(StateStopped)
	})
	return r.stopErr
}

func (r *LifecycleRunner) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&r.state, int32(from), int32(to))
}

func (r *LifecycleRunner) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
}
