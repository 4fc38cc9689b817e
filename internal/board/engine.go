// Package board owns the live review board. A single goroutine executes
// every mutation, scoring action, export trigger and flush; callers submit
// work with Do and receive results when it has run. After each mutation the
// session is saved and a debounced export is requested.
package board

import (
	"context"
	"sync"
	"time"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/export"
	"github.com/aimusicboards/reviewboard/internal/leaderboard"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/observability/metrics"
	"github.com/aimusicboards/reviewboard/internal/queue"
	"github.com/aimusicboards/reviewboard/internal/session"
)

// Defaults for Config fields left zero.
const (
	DefaultQualifyingMin    = 30
	DefaultLeaderboardLimit = 50
	DefaultDisplaySlots     = 5
	DefaultMaxTotal         = 40
	DefaultTitle            = "AI Music Review Board"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.NewStd("board engine is closed")

// Config holds board rules and presentation settings.
type Config struct {
	Title            string
	QualifyingMin    int
	LeaderboardLimit int
	DisplaySlots     int
	MaxTotal         int
	SubmissionNote   string
	ExportDelay      time.Duration
	ExportTimeout    time.Duration
	// Location is the zone used for the calendar date in session labels.
	// Defaults to UTC.
	Location *time.Location
}

func (c *Config) applyDefaults() {
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if c.QualifyingMin <= 0 {
		c.QualifyingMin = DefaultQualifyingMin
	}
	if c.LeaderboardLimit <= 0 {
		c.LeaderboardLimit = DefaultLeaderboardLimit
	}
	if c.DisplaySlots <= 0 {
		c.DisplaySlots = DefaultDisplaySlots
	}
	if c.MaxTotal <= 0 {
		c.MaxTotal = DefaultMaxTotal
	}
	if c.ExportTimeout <= 0 {
		c.ExportTimeout = export.DefaultTimeout
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
}

// Archiver keeps a permanent record of scored entries across sessions.
type Archiver interface {
	Record(ctx context.Context, boardSession int, e *model.Entry) error
	Forget(ctx context.Context, entryID string) error
}

// Engine is the board actor. All exported methods are safe for concurrent use.
type Engine struct {
	cfg      Config
	store    *session.Store
	exporter *export.Exporter
	archiver Archiver
	gauges   *metrics.BoardMetrics
	log      logger.Logger
	now      func() time.Time

	// Owned by the run goroutine.
	queue        *queue.Manager
	entries      []model.Entry
	boardSession int
	hostScript   string
	changed      bool

	ops       chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithArchiver records every scored entry in a.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// WithMetrics publishes board gauges to m.
func WithMetrics(m *metrics.BoardMetrics) Option {
	return func(e *Engine) { e.gauges = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Deps are the collaborators every engine needs.
type Deps struct {
	Store     *session.Store
	Publisher *export.Publisher
	Recorder  metrics.Recorder
}

// New loads the session from deps.Store and starts the engine goroutine.
// A corrupt session file is returned as an error rather than overwritten.
func New(cfg Config, deps Deps, opts ...Option) (*Engine, error) {
	cfg.applyDefaults()

	e := &Engine{
		cfg:   cfg,
		store: deps.Store,
		log:   logger.Global().Module("board"),
		now:   time.Now,
		ops:   make(chan func()),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	state, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	e.restore(state)

	exportOpts := []export.Option{
		export.WithScheduler(e.post),
		export.WithLogger(e.log.Module("export")),
		export.WithClock(e.now),
	}
	if deps.Recorder != nil {
		exportOpts = append(exportOpts, export.WithRecorder(deps.Recorder))
	}
	e.exporter = export.New(export.Config{
		Delay:   cfg.ExportDelay,
		Timeout: cfg.ExportTimeout,
		Build: export.BuildOptions{
			Limit:          cfg.LeaderboardLimit,
			MinTotal:       cfg.QualifyingMin,
			SubmissionNote: cfg.SubmissionNote,
			Location:       cfg.Location,
		},
	}, e.snapshot, deps.Publisher, exportOpts...)

	e.updateGauges()
	go e.run()

	e.log.Info("board ready",
		logger.Int("board_session", e.boardSession),
		logger.Int("queue", e.queue.Len()),
		logger.Int("entries", len(e.entries)))
	return e, nil
}

func (e *Engine) restore(state *session.State) {
	e.queue = queue.New(state.Submissions, state.NowPlaying,
		queue.WithClock(e.now),
		queue.WithChangeHook(func(queue.ChangeKind) { e.changed = true }))
	e.entries = append([]model.Entry(nil), state.Entries...)
	leaderboard.Sort(e.entries)
	e.boardSession = max(state.BoardSessionNum, 1)
	e.hostScript = state.HostScript
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case op := <-e.ops:
			op()
		case <-e.quit:
			return
		}
	}
}

// post hands fn to the engine goroutine. It reports false once the engine
// has stopped.
func (e *Engine) post(fn func()) bool {
	select {
	case e.ops <- fn:
		return true
	case <-e.quit:
		return false
	}
}

// Do runs fn on the engine goroutine and returns its error. When fn marks
// the state changed, the session is saved and an export requested before
// Do returns.
func (e *Engine) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	op := func() {
		err := fn()
		if e.changed {
			e.commit()
		}
		result <- err
	}

	select {
	case e.ops <- op:
	case <-e.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-e.done:
		// The op was accepted, so it ran before the loop exited.
		return <-result
	}
}

// commit persists and schedules publication after a mutation. A failed
// save is logged; the in-memory board stays authoritative.
func (e *Engine) commit() {
	e.changed = false
	if err := e.store.Save(e.snapshot()); err != nil {
		e.log.Error("failed to save session", logger.Error(err))
	}
	e.exporter.RequestExport()
	e.updateGauges()
}

func (e *Engine) markChanged() {
	e.changed = true
}

// snapshot copies the state. It must run on the engine goroutine.
func (e *Engine) snapshot() *session.State {
	return &session.State{
		Version:         session.CurrentVersion,
		BoardSessionNum: e.boardSession,
		NowPlaying:      e.queue.NowPlaying(),
		Submissions:     e.queue.Items(),
		Entries:         append([]model.Entry(nil), e.entries...),
		HostScript:      e.hostScript,
	}
}

func (e *Engine) updateGauges() {
	if e.gauges == nil {
		return
	}
	e.gauges.QueueLength.Set(float64(e.queue.Len()))
	e.gauges.Entries.Set(float64(len(e.entries)))
	e.gauges.Qualifying.Set(float64(len(leaderboard.Qualifying(e.entries, e.cfg.QualifyingMin))))
	e.gauges.BoardSession.Set(float64(e.boardSession))
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Close stops the engine: the debounce timer is canceled, a pending export
// is published synchronously, the session is saved, and targets are
// released. The shutdown always runs, even when ctx is already done; the
// final publish is bounded by the export timeout instead. Later calls
// return the first result.
func (e *Engine) Close(ctx context.Context) error {
	e.closeOnce.Do(func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ExportTimeout)
		defer cancel()

		result := make(chan error, 1)
		e.ops <- func() {
			e.exporter.Stop(flushCtx)
			var errs []error
			if err := e.store.Save(e.snapshot()); err != nil {
				errs = append(errs, err)
			}
			if err := e.exporter.Close(flushCtx); err != nil {
				errs = append(errs, err)
			}
			result <- errors.Join(errs...)
		}
		e.closeErr = <-result

		close(e.quit)
		<-e.done
		e.log.Info("board closed")
	})
	return e.closeErr
}
