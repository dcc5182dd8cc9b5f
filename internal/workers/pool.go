package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/logging"
	"clipforge/internal/queue"
	"clipforge/internal/services"
)

// Handler processes one claimed job. A non-nil return marks the job failed
// and triggers the queue's retry policy; nil marks it completed.
type Handler func(ctx context.Context, job *queue.Job) error

type registration struct {
	queue       string
	handler     Handler
	concurrency int
	logger      *slog.Logger
}

// Pool pulls jobs from named queues at per-queue bounded concurrency and
// dispatches them to registered handlers. One maintenance loop promotes
// delayed jobs, reclaims stale active jobs and prunes finished history.
type Pool struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger

	pollInterval      time.Duration
	errorRetry        time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration

	mu            sync.Mutex
	registrations []registration
	running       bool
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewPool constructs an idle pool; call Register then Start.
func NewPool(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		cfg:               cfg,
		store:             store,
		logger:            logger,
		pollInterval:      secondsOr(cfg.Queue.PollInterval, 5*time.Second),
		errorRetry:        secondsOr(cfg.Queue.ErrorRetryInterval, 10*time.Second),
		heartbeatInterval: secondsOr(cfg.Queue.HeartbeatInterval, 15*time.Second),
		heartbeatTimeout:  time.Duration(cfg.Queue.HeartbeatTimeout) * time.Second,
	}
}

// Register adds a handler for a named queue. Must be called before Start.
func (p *Pool) Register(queueName string, handler Handler, concurrency int) {
	if concurrency < 1 {
		concurrency = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registrations = append(p.registrations, registration{
		queue:       queueName,
		handler:     handler,
		concurrency: concurrency,
		logger:      logging.NewComponentLogger(p.logger, "worker").With(logging.String(logging.FieldQueue, queueName)),
	})
}

// Start launches the worker goroutines and the maintenance loop.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("worker pool already running")
	}
	if len(p.registrations) == 0 {
		return errors.New("no workers registered")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	for _, reg := range p.registrations {
		for slot := 0; slot < reg.concurrency; slot++ {
			p.wg.Add(1)
			go p.runWorker(runCtx, reg, slot)
		}
	}
	p.wg.Add(1)
	go p.runMaintenance(runCtx)

	return nil
}

// Stop cancels all workers and waits for in-flight handlers to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, reg registration, slot int) {
	defer p.wg.Done()
	logger := reg.logger.With(logging.Int("slot", slot))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.store.Claim(ctx, reg.queue)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Warn("claim failed", logging.Error(err))
			if !sleepCtx(ctx, p.errorRetry) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, p.pollInterval) {
				return
			}
			continue
		}

		p.processJob(ctx, reg, logger, job)
	}
}

func (p *Pool) processJob(ctx context.Context, reg registration, logger *slog.Logger, job *queue.Job) {
	jobLogger := logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("kind", string(job.Kind)),
	)
	jobLogger.Info("job started", logging.Int("attempt", job.AttemptsMade))

	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithQueue(jobCtx, job.Queue)

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go p.runHeartbeat(heartbeatCtx, &hbWG, job.ID)

	start := time.Now()
	err := p.invokeHandler(jobCtx, reg.handler, job)
	stopHeartbeat()
	hbWG.Wait()

	// Completion runs on a fresh context so shutdown cannot strand the
	// job mid-transition.
	finishCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err != nil {
		jobLogger.Warn("job failed",
			logging.Error(err),
			logging.Duration("elapsed", time.Since(start)))
		if markErr := p.store.MarkFailed(finishCtx, job.ID, err); markErr != nil {
			jobLogger.Error("mark failed errored", logging.Error(markErr))
		}
		return
	}

	jobLogger.Info("job completed", logging.Duration("elapsed", time.Since(start)))
	if markErr := p.store.MarkCompleted(finishCtx, job.ID); markErr != nil {
		jobLogger.Error("mark completed errored", logging.Error(markErr))
	}
}

// invokeHandler isolates handler panics so one bad job cannot kill a worker
// slot; a panic becomes a job failure.
func (p *Pool) invokeHandler(ctx context.Context, handler Handler, job *queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrTransient, "worker", "run handler",
				fmt.Sprintf("handler panic: %v", r), nil)
		}
	}()
	return handler(ctx, job)
}

func (p *Pool) runHeartbeat(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()
	ticker := time.NewTicker(p.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.store.Heartbeat(ctx, jobID); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldJobID, jobID),
					logging.Error(err))
			}
		}
	}
}

func (p *Pool) runMaintenance(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	logger := logging.NewComponentLogger(p.logger, "queue-maintenance")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.maintain(ctx, logger)
		}
	}
}

func (p *Pool) maintain(ctx context.Context, logger *slog.Logger) {
	if promoted, err := p.store.PromoteDelayed(ctx); err != nil {
		logger.Warn("promote delayed failed", logging.Error(err))
	} else if promoted > 0 {
		logger.Info("promoted delayed jobs", logging.Int64("count", promoted))
	}

	if p.heartbeatTimeout > 0 {
		if reclaimed, err := p.store.ReclaimStale(ctx, p.heartbeatTimeout); err != nil {
			logger.Warn("reclaim stale failed", logging.Error(err))
		} else if reclaimed > 0 {
			logger.Info("reclaimed stale jobs", logging.Int64("count", reclaimed))
		}
	}

	p.mu.Lock()
	queues := make([]string, 0, len(p.registrations))
	for _, reg := range p.registrations {
		queues = append(queues, reg.queue)
	}
	p.mu.Unlock()
	for _, queueName := range queues {
		if _, err := p.store.PruneFinished(ctx, queueName,
			p.cfg.Queue.RetainCompleted, p.cfg.Queue.RetainFailed); err != nil {
			logger.Warn("prune finished failed",
				logging.String(logging.FieldQueue, queueName),
				logging.Error(err))
		}
	}
}

func secondsOr(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
