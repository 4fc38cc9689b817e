// Package app assembles the board engine and its optional services from
// settings. Commands build one App, use it, and close it.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aimusicboards/reviewboard/internal/board"
	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/export"
	"github.com/aimusicboards/reviewboard/internal/export/targets"
	"github.com/aimusicboards/reviewboard/internal/history"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/observability"
	"github.com/aimusicboards/reviewboard/internal/overlay"
	"github.com/aimusicboards/reviewboard/internal/session"
)

// App owns the engine and everything it publishes to.
type App struct {
	Settings *conf.Settings
	Engine   *board.Engine
	Metrics  *observability.Metrics
	// Feed is set when the overlay server is enabled.
	Feed *overlay.Feed
	// Archive is set when the history database is enabled.
	Archive *history.Archive

	log logger.Logger
	now func() time.Time
}

// Option configures an App.
type Option func(*App)

// WithClock replaces the wall clock used by the engine.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithLogger sets the base logger; components derive module loggers from it.
func WithLogger(l logger.Logger) Option {
	return func(a *App) { a.log = l }
}

// New builds the metrics registry, export targets, archive and engine. On
// error everything opened so far is released.
func New(settings *conf.Settings, opts ...Option) (*App, error) {
	if settings == nil {
		return nil, errors.Newf("settings are required").
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}

	a := &App{
		Settings: settings,
		log:      logger.Global().Module("app"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}
	a.Metrics = m

	exportTargets, err := targets.FromSettings(&settings.Export, a.log.Module("export"))
	if err != nil {
		return nil, err
	}
	if settings.Overlay.Enabled {
		a.Feed = overlay.NewFeed()
		exportTargets = append(exportTargets, a.Feed)
	}
	publisher := export.NewPublisher(exportTargets, a.log.Module("export"), m.Export)

	engineOpts := []board.Option{
		board.WithLogger(a.log.Module("board")),
		board.WithMetrics(m.Board),
		board.WithClock(a.now),
	}
	if settings.History.Enabled {
		archive, err := history.Open(settings.History.Path,
			history.WithLogger(a.log.Module("history")),
			history.WithRecorder(m.History))
		if err != nil {
			_ = publisher.Close()
			return nil, err
		}
		a.Archive = archive
		engineOpts = append(engineOpts, board.WithArchiver(archive))
	}

	engine, err := board.New(BoardConfig(settings), board.Deps{
		Store:     session.NewStore(settings.Session.Path, a.log.Module("session")),
		Publisher: publisher,
		Recorder:  m.Export,
	}, engineOpts...)
	if err != nil {
		_ = publisher.Close()
		if a.Archive != nil {
			_ = a.Archive.Close()
		}
		return nil, err
	}
	a.Engine = engine
	return a, nil
}

// BoardConfig maps settings onto engine rules.
func BoardConfig(s *conf.Settings) board.Config {
	return board.Config{
		Title:            s.Main.Name,
		QualifyingMin:    s.Board.QualifyingMin,
		LeaderboardLimit: s.Board.LeaderboardLimit,
		DisplaySlots:     s.Board.DisplaySlots,
		MaxTotal:         s.Board.MaxTotal,
		SubmissionNote:   s.Board.SubmissionNote,
		ExportDelay:      s.Export.Delay,
		ExportTimeout:    s.Export.Timeout,
		Location:         time.UTC,
	}
}

// Run builds an App, calls fn with a context canceled on SIGINT or SIGTERM,
// and closes the App. Changes made by fn are saved and published on close.
func Run(settings *conf.Settings, fn func(ctx context.Context, a *App) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := New(settings)
	if err != nil {
		return err
	}

	runErr := fn(ctx, a)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.Close(closeCtx))
}

// Close stops the engine, which publishes any pending export and saves the
// session, then closes the archive.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Engine.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.Archive != nil {
		if err := a.Archive.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
