// Package supervisor owns the worker process's lifecycle: starting the
// broker client and worker pool, and coordinating a single, idempotent
// shutdown across both on SIGINT/SIGTERM (spec §4.H, component H).
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/kacperpap/air-pollution-tracker/internal/broker"
	"github.com/kacperpap/air-pollution-tracker/internal/config"
	"github.com/kacperpap/air-pollution-tracker/internal/model"
	"github.com/kacperpap/air-pollution-tracker/internal/simulation"
	"github.com/kacperpap/air-pollution-tracker/internal/workerpool"
)

// Supervisor runs the broker client and worker pool to completion and
// guarantees that shutdown runs exactly once, regardless of how many
// termination signals arrive or how many callers invoke Shutdown.
type Supervisor struct {
	cfg *config.Config
	log *logrus.Logger

	pool   *workerpool.Pool
	client *broker.Client

	shutdownOnce sync.Once
	cancel       context.CancelFunc
}

// New wires a Pool and a broker Client from cfg. It does not start either;
// call Run.
func New(cfg *config.Config, log *logrus.Logger) *Supervisor {
	run := func(ctx context.Context, job *model.SimulationJob, jobLog *logrus.Entry) (*simulation.Output, error) {
		return simulation.Run(ctx, job, cfg.Defaults, jobLog)
	}
	pool := workerpool.New(cfg.WorkerPoolSize, cfg.SimTimeout, run, log)

	client := &broker.Client{
		URL:      cfg.RabbitMQURL,
		Queue:    cfg.RequestQueue,
		Prefetch: effectivePrefetch(cfg.WorkerPoolSize),
		Pool:     pool,
		Log:      log,
	}

	return &Supervisor{cfg: cfg, log: log, pool: pool, client: client}
}

func effectivePrefetch(size int) int {
	if size <= 0 {
		return 1
	}
	return size
}

// Run starts the broker client and blocks until a termination signal
// arrives or the client's session loop exits on its own, then drains the
// worker pool. It returns nil on a clean shutdown.
func (s *Supervisor) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		s.log.WithField("signal", sig.String()).Info("supervisor: shutdown signal received")
		s.Shutdown()
	}()

	s.log.Info("supervisor: starting broker client")
	err := s.client.Run(ctx)

	// Whether Run returned because of a signal or on its own, shutdown must
	// still happen exactly once (spec §4.H: idempotent shutdown).
	s.Shutdown()
	return err
}

// Shutdown cancels the broker client's context and drains the worker pool,
// guaranteeing no new job starts once it returns. Safe to call more than
// once and from multiple goroutines.
func (s *Supervisor) Shutdown() {
	s.shutdownOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.log.WithField("grace", s.cfg.ShutdownGrace).Info("supervisor: draining worker pool")
		s.pool.Shutdown(s.cfg.ShutdownGrace)
		s.log.Info("supervisor: shutdown complete")
	})
}
