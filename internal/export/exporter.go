// Package export builds the public leaderboard artifact and publishes it to
// the configured targets.
//
// Mutations call RequestExport, which debounces: every request pushes the
// deadline out by the configured delay, and only the timer belonging to the
// latest request may flush. A flush reads the state at fire time, so bursts
// of edits produce one artifact reflecting the last of them.
package export

import (
	"context"
	"sync"
	"time"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/observability/metrics"
	"github.com/aimusicboards/reviewboard/internal/session"
)

// Defaults for Config fields left zero.
const (
	DefaultDelay   = 1500 * time.Millisecond
	DefaultTimeout = 10 * time.Second
	DefaultLimit   = 50
)

// StateSource returns the board state to export. The exporter calls it from
// whatever goroutine the Scheduler runs work on.
type StateSource func() *session.State

// Scheduler runs fn on the goroutine that owns the state. It reports false
// when the work was not accepted.
type Scheduler func(fn func()) bool

// Config holds exporter settings.
type Config struct {
	Delay   time.Duration
	Timeout time.Duration
	Build   BuildOptions
}

// Exporter owns the debounce timer and the publish pipeline.
type Exporter struct {
	cfg       Config
	source    StateSource
	publisher *Publisher
	schedule  Scheduler
	log       logger.Logger
	recorder  metrics.Recorder
	now       func() time.Time

	mu     sync.Mutex
	gen    uint64
	dirty  bool
	timer  *time.Timer
	closed bool
	last   []byte

	inflight  sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithScheduler routes timer callbacks through s. Without it the flush runs
// on the timer goroutine, and source must be safe for that.
func WithScheduler(s Scheduler) Option {
	return func(e *Exporter) { e.schedule = s }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Exporter) { e.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Exporter) { e.recorder = r }
}

// WithClock overrides the clock used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New returns an Exporter reading from source and publishing through publisher.
func New(cfg Config, source StateSource, publisher *Publisher, opts ...Option) *Exporter {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Build.Limit <= 0 {
		cfg.Build.Limit = DefaultLimit
	}

	e := &Exporter{
		cfg:       cfg,
		source:    source,
		publisher: publisher,
		schedule:  func(fn func()) bool { fn(); return true },
		log:       logger.Global().Module("export"),
		recorder:  metrics.NoOpRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RequestExport marks the artifact stale and restarts the debounce timer.
func (e *Exporter) RequestExport() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.dirty = true
	e.gen++
	gen := e.gen

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.cfg.Delay, func() {
		if !e.schedule(func() { e.fire(gen) }) {
			e.log.Debug("export timer fired after shutdown, dropped")
		}
	})
}

// fire runs a flush only if gen is still the latest request.
func (e *Exporter) fire(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.closed {
		e.mu.Unlock()
		return
	}
	e.inflight.Add(1)
	e.mu.Unlock()
	defer e.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Timeout)
	defer cancel()
	e.Flush(ctx)
}

// Pending reports whether a debounced export has not yet run.
func (e *Exporter) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

func (e *Exporter) takeDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.dirty {
		return false
	}
	e.dirty = false
	return true
}

// Flush publishes the current state if an export is pending. Failures are
// logged and counted, never returned.
func (e *Exporter) Flush(ctx context.Context) {
	if !e.takeDirty() {
		return
	}

	start := time.Now()
	if err := e.publish(ctx); err != nil {
		e.recorder.RecordOperation(metrics.OpFlush, metrics.StatusError)
		e.log.Error("auto-export failed",
			logger.Error(err),
			logger.Duration("elapsed", time.Since(start)))
		return
	}
	e.recorder.RecordOperation(metrics.OpFlush, metrics.StatusSuccess)
	e.recorder.RecordDuration(metrics.OpFlush, time.Since(start).Seconds())
}

// ExportNow builds and publishes immediately, returning any failure. A
// pending debounced export is satisfied by this call.
func (e *Exporter) ExportNow(ctx context.Context) error {
	e.takeDirty()
	if err := e.publish(ctx); err != nil {
		e.recorder.RecordOperation(metrics.OpExportNow, metrics.StatusError)
		return err
	}
	e.recorder.RecordOperation(metrics.OpExportNow, metrics.StatusSuccess)
	return nil
}

// Render returns the artifact for the current state without publishing it.
func (e *Exporter) Render() ([]byte, error) {
	a := Build(e.source(), e.cfg.Build, e.now())
	data, err := a.Encode()
	if err != nil {
		return nil, errors.New(err).
			Component("export").
			Category(errors.CategoryExportIO).
			Context("operation", "encode").
			Build()
	}
	return data, nil
}

func (e *Exporter) publish(ctx context.Context) error {
	data, err := e.Render()
	if err != nil {
		return err
	}

	err = e.publisher.Publish(ctx, data)

	e.mu.Lock()
	e.last = data
	e.mu.Unlock()

	if err == nil {
		e.log.Info("leaderboard exported", logger.Int("bytes", len(data)))
	}
	return err
}

// Last returns the most recently published artifact, or nil.
func (e *Exporter) Last() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Stop cancels the debounce timer and synchronously publishes a pending
// export. Requests made afterwards are ignored. It must be called from the
// goroutine that owns the state.
func (e *Exporter) Stop(ctx context.Context) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()

	e.inflight.Wait()
	e.Flush(ctx)
}

// Close stops the exporter and releases the targets. Calling it twice
// returns the first result.
func (e *Exporter) Close(ctx context.Context) error {
	e.Stop(ctx)
	e.closeOnce.Do(func() {
		e.closeErr = e.publisher.Close()
	})
	return e.closeErr
}
