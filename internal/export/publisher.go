package export

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/observability/metrics"
)

// Target receives every published artifact. Publish must honor ctx.
type Target interface {
	Name() string
	Publish(ctx context.Context, artifact []byte) error
	Close() error
}

// Publisher fans an artifact out to all targets in parallel.
type Publisher struct {
	targets  []Target
	log      logger.Logger
	recorder metrics.Recorder
}

// NewPublisher returns a Publisher over targets.
func NewPublisher(targets []Target, log logger.Logger, recorder metrics.Recorder) *Publisher {
	if log == nil {
		log = logger.Global().Module("export")
	}
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}
	return &Publisher{targets: targets, log: log, recorder: recorder}
}

// Targets returns the configured target names.
func (p *Publisher) Targets() []string {
	names := make([]string, len(p.targets))
	for i, t := range p.targets {
		names[i] = t.Name()
	}
	return names
}

// Publish sends artifact to every target. One target failing does not stop
// the others; all failures are returned joined in an export-io error.
func (p *Publisher) Publish(ctx context.Context, artifact []byte) error {
	if len(p.targets) == 0 {
		p.log.Debug("no export targets configured")
		return nil
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, t := range p.targets {
		g.Go(func() error {
			op := metrics.OpPublish + ":" + t.Name()
			start := time.Now()
			err := t.Publish(ctx, artifact)
			p.recorder.RecordDuration(op, time.Since(start).Seconds())

			if err != nil {
				p.recorder.RecordOperation(op, metrics.StatusError)
				p.recorder.RecordError(op, string(errors.CategoryExportIO))
				mu.Lock()
				errs = append(errs, errors.New(err).
					Component("export").
					Category(errors.CategoryExportIO).
					Context("target", t.Name()).
					Build())
				mu.Unlock()
				return nil
			}
			p.recorder.RecordOperation(op, metrics.StatusSuccess)
			p.log.Debug("artifact published",
				logger.String("target", t.Name()),
				logger.Int("bytes", len(artifact)),
				logger.Duration("elapsed", time.Since(start)))
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) == 0 {
		return nil
	}
	return errors.New(errors.Join(errs...)).
		Component("export").
		Category(errors.CategoryExportIO).
		Context("failed_targets", len(errs)).
		Build()
}

// Close releases every target, returning the joined close errors.
func (p *Publisher) Close() error {
	var errs []error
	for _, t := range p.targets {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
