package pipeline

import (
	"context"
	"errors"
	"sync"
)

var ErrBusy = errors.New("a capture is already in progress")

// Job is one pipeline run on its own goroutine.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	result Result
	err    error
}

func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes.
func (j *Job) Wait() (Result, error) {
	<-j.done
	return j.result, j.err
}

// Runner allows at most one job at a time.
type Runner struct {
	Pipeline *Pipeline

	mu      sync.Mutex
	current *Job
}

func NewRunner(p *Pipeline) *Runner {
	return &Runner{Pipeline: p}
}

// Start launches a job, or returns ErrBusy while one is still running.
func (r *Runner) Start(ctx context.Context) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		select {
		case <-r.current.done:
		default:
			return nil, ErrBusy
		}
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{cancel: cancel, done: make(chan struct{})}
	r.current = job

	go func() {
		defer close(job.done)
		defer cancel()
		job.result, job.err = r.Pipeline.Run(jobCtx)
	}()

	return job, nil
}

// Cancel stops the running job and reports whether there was one.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	job := r.current
	r.mu.Unlock()

	if job == nil {
		return false
	}
	select {
	case <-job.done:
		return false
	default:
		job.Cancel()
		return true
	}
}

func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return false
	}
	select {
	case <-r.current.done:
		return false
	default:
		return true
	}
}
