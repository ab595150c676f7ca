// Package workerpool runs simulation jobs concurrently on a fixed pool of
// CPU-bound workers, isolating a single job's failure or timeout from the
// broker I/O loop (spec §4.F, component F).
package workerpool

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kacperpap/air-pollution-tracker/internal/model"
	"github.com/kacperpap/air-pollution-tracker/internal/simulation"
)

// Status is the outcome of a submitted job, matching the wire values of
// spec §4.G.
type Status string

const (
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusTimeExceeded Status = "timeExceeded"
)

// Result is what a worker hands back to the broker layer for publication.
type Result struct {
	CorrelationID string
	ReplyTo       string
	Status        Status
	Output        *simulation.Output
}

// RunFunc executes one job and returns its output. It is a field on Pool
// (rather than a hard-wired call to simulation.Run) purely so tests can
// substitute a fast fake without going through a real grid/solver run.
type RunFunc func(ctx context.Context, job *model.SimulationJob, log *logrus.Entry) (*simulation.Output, error)

// Pool is a fixed-size pool of CPU-bound simulation workers.
type Pool struct {
	sem     chan int
	timeout time.Duration
	run     RunFunc
	log     *logrus.Logger

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

// New creates a pool with size workers (size <= 0 defaults to
// runtime.NumCPU(), matching spec §4.F: "size = CPU count") and the given
// per-job timeout. Workers are numbered 0..size-1 so a job's log entry can
// carry the worker_id that actually ran it (spec_full.md: "per-job logging
// ... worker_id").
func New(size int, timeout time.Duration, run RunFunc, log *logrus.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	sem := make(chan int, size)
	for i := 0; i < size; i++ {
		sem <- i
	}
	return &Pool{
		sem:     sem,
		timeout: timeout,
		run:     run,
		log:     log,
	}
}

// Submit runs job on a worker and sends its Result on the returned
// channel, exactly once. It never blocks past pool capacity+caller's
// willingness to wait: if the pool is draining, it returns false
// immediately and does not start the job (spec §4.H: "no task is started
// after shutdown begins").
func (p *Pool) Submit(ctx context.Context, job *model.SimulationJob, log *logrus.Entry) (<-chan Result, bool) {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return nil, false
	}
	p.wg.Add(1)
	p.mu.Unlock()

	out := make(chan Result, 1)

	var workerID int
	select {
	case workerID = <-p.sem:
	case <-ctx.Done():
		p.wg.Done()
		return nil, false
	}

	go func() {
		defer p.wg.Done()
		defer func() { p.sem <- workerID }()
		jobLog := log.WithField("worker_id", fmt.Sprintf("w%d", workerID))
		out <- p.execute(ctx, job, jobLog)
		close(out)
	}()

	return out, true
}

// execute runs one job to completion, translating a panic, an expired
// timeout, or a simulation error into the appropriate Result status. A
// panic inside the simulation never propagates to the worker goroutine's
// caller (spec §4.F contract: "a panic/exception in simulation does not
// kill the worker"). log already carries worker_id for the worker that
// claimed the job.
func (p *Pool) execute(parent context.Context, job *model.SimulationJob, log *logrus.Entry) (result Result) {
	result = Result{CorrelationID: job.CorrelationID, ReplyTo: job.ReplyTo, Status: StatusFailed}

	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	var output *simulation.Output

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("workerpool: job panicked: %v", r)
			}
		}()
		output, err = p.run(gctx, job, log)
		return err
	})

	err := g.Wait()

	switch {
	case err == nil:
		result.Status = StatusCompleted
		result.Output = output
	case ctx.Err() == context.DeadlineExceeded:
		result.Status = StatusTimeExceeded
		log.WithError(err).Warn("job exceeded its wall-clock timeout")
	case parent.Err() != nil:
		// Shutdown cancelled the parent context: the job is lost, no
		// reply should be published (spec §7 "Shutdown mid-job").
		result.Status = StatusFailed
		result.Output = nil
		log.WithError(err).Info("job cancelled by shutdown")
	default:
		result.Status = StatusFailed
		log.WithError(err).Error("job failed")
	}
	return result
}

// Shutdown stops accepting new work and waits up to grace for in-flight
// jobs to finish. Jobs still running after grace are left to their own
// per-job timeout/context cancellation; Shutdown does not block past
// grace (spec §4.F/§4.H).
func (p *Pool) Shutdown(grace time.Duration) {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		p.log.Warn("worker pool shutdown grace period elapsed with jobs still running")
	}
}
