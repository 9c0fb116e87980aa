// Package poller pulls Jetstream events in timed windows and hands each one
// to a dispatcher.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	commonlogger "jetstream-go/common/logger"
	"jetstream-go/jetstream/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultWindow   = 25 * time.Second
	DefaultLimit    = 100
)

// Dispatcher is satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev models.Event) error
}

// Config timing of the poll loop. Zero values take the defaults.
type Config struct {
	Interval time.Duration // time between ticks
	Window   time.Duration // longest time one window keeps fetching
	Limit    int           // events per fetch
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	return c
}

// WindowStats counters since start plus the outcome of the last window.
type WindowStats struct {
	InstanceID string    `json:"instance_id"`
	Source     string    `json:"source"`
	InFlight   bool      `json:"in_flight"`
	LastStart  time.Time `json:"last_start"`
	LastEnd    time.Time `json:"last_end"`
	Windows    int64     `json:"windows"`
	Batches    int64     `json:"batches"`
	Processed  int64     `json:"processed"`
	Failed     int64     `json:"failed"`
	Dropped    int64     `json:"dropped"`
	LastError  string    `json:"last_error,omitempty"`
}

// Option configures a Poller.
type Option func(*Poller)

// WithLocker guards every window with l; contention drops the tick.
func WithLocker(l Locker) Option {
	return func(p *Poller) { p.locker = l }
}

// Poller runs at most one window at a time. Ticks that arrive while a window
// is in flight are dropped, not queued.
type Poller struct {
	source     EventSource
	dispatcher Dispatcher
	locker     Locker
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time

	running sync.Mutex
	wg      sync.WaitGroup

	mu    sync.Mutex
	stats WindowStats
}

func New(source EventSource, dispatcher Dispatcher, cfg Config, logger *zap.Logger, opts ...Option) *Poller {
	logger = commonlogger.OrNop(logger)
	p := &Poller{
		source:     source,
		dispatcher: dispatcher,
		cfg:        cfg.withDefaults(),
		logger:     logger,
		now:        time.Now,
	}
	p.stats.InstanceID = uuid.NewString()
	p.stats.Source = source.Name()
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ticks every Interval, starting immediately, until ctx is cancelled. It
// then waits for the in-flight window and returns nil.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.logger.Info("Starting event poller",
		zap.String("instance_id", p.stats.InstanceID),
		zap.String("source", p.source.Name()),
		zap.Duration("interval", p.cfg.Interval),
		zap.Duration("window", p.cfg.Window),
		zap.Int("limit", p.cfg.Limit),
	)

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			p.logger.Info("Event poller stopped")
			return nil
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick starts a window in the background. It returns false, and counts a
// dropped tick, when a window is already running.
func (p *Poller) Tick(ctx context.Context) bool {
	if !p.running.TryLock() {
		p.recordDrop("window in flight")
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.running.Unlock()
		p.guardedWindow(ctx)
	}()
	return true
}

// Wait blocks until the in-flight window, if any, has finished.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Stats returns a snapshot of the counters.
func (p *Poller) Stats() WindowStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Poller) guardedWindow(ctx context.Context) {
	if p.locker == nil {
		p.RunWindow(ctx)
		return
	}

	lock, err := p.locker.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			p.recordDrop("lock held")
			return
		}
		p.logger.Error("Failed to acquire poll lock", zap.Error(err))
		p.mu.Lock()
		p.stats.LastError = err.Error()
		p.mu.Unlock()
		return
	}
	defer func() {
		// release even when ctx is already cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil {
			p.logger.Warn("Failed to release poll lock", zap.Error(err))
		}
	}()

	p.RunWindow(ctx)
}

// RunWindow fetches and dispatches batches until a fetch comes back empty,
// the window elapses or ctx is cancelled. A batch is acknowledged only when
// every event in it dispatched without error; otherwise it is left for
// redelivery and the window ends. The deadline is checked between batches.
func (p *Poller) RunWindow(ctx context.Context) {
	start := p.now()
	deadline := start.Add(p.cfg.Window)

	p.mu.Lock()
	p.stats.InFlight = true
	p.stats.LastStart = start
	p.mu.Unlock()

	var (
		processed, failed, batches int64
		lastErr                    error
	)

	for ctx.Err() == nil && p.now().Before(deadline) {
		batch, err := p.source.Fetch(ctx, p.cfg.Limit)
		if err != nil {
			lastErr = err
			p.logger.Error("Failed to fetch events", zap.String("source", p.source.Name()), zap.Error(err))
			break
		}
		if batch == nil || batch.Len() == 0 {
			break
		}

		ok, bad := p.dispatchBatch(ctx, batch)
		processed += ok
		failed += bad
		if bad > 0 {
			lastErr = errBatchFailed
			p.logger.Warn("Batch left for redelivery",
				zap.String("batch_id", batch.ID),
				zap.Int("events", batch.Len()),
				zap.Int64("failed", bad),
			)
			break
		}
		if ctx.Err() != nil {
			break
		}

		if err := p.source.Ack(ctx, batch); err != nil {
			lastErr = err
			p.logger.Error("Failed to acknowledge batch",
				zap.String("batch_id", batch.ID),
				zap.Int("events", batch.Len()),
				zap.Error(err),
			)
			break
		}
		batches++
	}

	end := p.now()
	p.mu.Lock()
	p.stats.InFlight = false
	p.stats.LastEnd = end
	p.stats.Windows++
	p.stats.Batches += batches
	p.stats.Processed += processed
	p.stats.Failed += failed
	if lastErr != nil {
		p.stats.LastError = lastErr.Error()
	} else {
		p.stats.LastError = ""
	}
	p.mu.Unlock()

	p.logger.Info("Poll window finished",
		zap.Int64("batches", batches),
		zap.Int64("processed", processed),
		zap.Int64("failed", failed),
		zap.Duration("duration", end.Sub(start)),
	)
}

var errBatchFailed = errors.New("one or more events failed to dispatch")

// dispatchBatch dispatches every event, stopping early only on cancellation.
// An event interrupted by cancellation counts as failed.
func (p *Poller) dispatchBatch(ctx context.Context, batch *Batch) (ok, failed int64) {
	for _, ev := range batch.Events {
		if ctx.Err() != nil {
			return ok, failed
		}
		if err := p.dispatcher.Dispatch(ctx, ev); err != nil {
			failed++
			p.logger.Error("Failed to dispatch event",
				zap.String("event_id", ev.EventID()),
				zap.String("event_type", string(ev.EventType())),
				zap.String("device_name", ev.Device()),
				zap.Error(err),
			)
			continue
		}
		ok++
	}
	return ok, failed
}

func (p *Poller) recordDrop(reason string) {
	p.mu.Lock()
	p.stats.Dropped++
	p.mu.Unlock()
	p.logger.Debug("Poll tick dropped", zap.String("reason", reason))
}
