package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/staging"
	"clipforge/internal/workers"
)

// statsLogInterval controls how often the daemon logs per-queue counts and
// sweeps stranded work directories.
const statsLogInterval = time.Minute

// staleWorkDirAge is how long a job work directory may sit untouched before
// the sweep assumes its owner crashed and removes it.
const staleWorkDirAge = 24 * time.Hour

// Daemon coordinates the worker pool and the HTTP API, and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	pool   *workers.Pool
	api    *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	Queues       []queue.Stats
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies. The pool must have
// its handlers registered before Start.
func New(cfg *config.Config, store *queue.Store, pool *workers.Pool, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || pool == nil {
		return nil, errors.New("daemon requires config, store, and worker pool")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.LogDir, "clipforged.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pool:     pool,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches the worker pool and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipforge daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.pool.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start worker pool: %w", err)
	}
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.pool.Stop()
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	d.done = make(chan struct{})
	go d.logStatsLoop(d.ctx, d.done)

	d.running.Store(true)
	d.logger.Info("clipforge daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
	}
	d.pool.Stop()
	if d.done != nil {
		<-d.done
		d.done = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clipforge daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound API listener address, empty when the API is
// disabled or not started.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status including per-queue counts.
func (d *Daemon) Status(ctx context.Context) Status {
	stats, err := d.store.AllStats(ctx)
	if err != nil {
		d.logger.Warn("queue stats unavailable", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Queues:       stats,
		Dependencies: deps.Check(d.cfg),
	}
}

// logStatsLoop periodically logs queue depth so operators can spot backlog
// growth without hitting the API.
func (d *Daemon) logStatsLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(statsLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			staging.CleanStale(filepath.Join(d.cfg.StagingDir, "jobs"), staleWorkDirAge, d.logger)
			stats, err := d.store.AllStats(ctx)
			if err != nil {
				d.logger.Warn("queue stats unavailable", logging.Error(err))
				continue
			}
			for _, s := range stats {
				if s.Total() == 0 {
					continue
				}
				d.logger.Info("queue depth",
					logging.String(logging.FieldQueue, s.Queue),
					logging.Int("waiting", s.Waiting),
					logging.Int("delayed", s.Delayed),
					logging.Int("active", s.Active),
					logging.Int("failed", s.Failed))
			}
		}
	}
}
