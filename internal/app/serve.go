package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/notification"
	"github.com/aimusicboards/reviewboard/internal/overlay"
	"github.com/aimusicboards/reviewboard/internal/remote"
)

const shutdownTimeout = 10 * time.Second

// Services are the long-running parts started by Serve. Nil members are
// not started.
type Services struct {
	Overlay *overlay.Server
	Room    *remote.ControlRoom
	Alerter *notification.PaidAlerter

	client *remote.Client
}

// Close releases the remote client and waits for background alerts.
func (s *Services) Close() {
	if s.client != nil {
		s.client.Close()
	}
	if s.Alerter != nil {
		s.Alerter.Close()
	}
}

// Services builds the enabled long-running services. Reviews accepted by
// the remote service are recorded on the local board, and paid priority
// submissions seen on a poll alert the host.
func (a *App) Services() (*Services, error) {
	s := &Services{}
	cfg := a.Settings

	if cfg.Overlay.Enabled && a.Feed != nil {
		s.Overlay = overlay.NewServer(a.Feed,
			overlay.WithLogger(a.log.Module("overlay")),
			overlay.WithMetrics(a.Metrics.Handler()),
			overlay.WithDisplaySlots(cfg.Board.DisplaySlots))
	}

	if cfg.Notification.Enabled {
		sender, err := notification.NewShoutrrrSender(cfg.Notification.URLs, cfg.Notification.Timeout)
		if err != nil {
			return nil, err
		}
		s.Alerter = notification.NewPaidAlerter(sender,
			notification.WithLogger(a.log.Module("notification")),
			notification.WithRecorder(a.Metrics.Notify))
	}

	if cfg.Remote.Enabled {
		client, err := remote.NewClient(&cfg.Remote,
			remote.WithLogger(a.log.Module("remote")),
			remote.WithRecorder(a.Metrics.Remote))
		if err != nil {
			s.Close()
			return nil, err
		}
		s.client = client

		roomOpts := []remote.RoomOption{
			remote.WithRoomLogger(a.log.Module("remote")),
			remote.WithGauges(a.Metrics.Board),
			remote.WithScoredHook(a.recordRemoteReview),
		}
		if s.Alerter != nil {
			roomOpts = append(roomOpts, remote.WithQueueHook(s.Alerter.Observe))
		}
		s.Room = remote.NewControlRoom(client, roomOpts...)
	}
	return s, nil
}

func (a *App) recordRemoteReview(ctx context.Context, sub model.Submission, scores model.Scores, _ remote.ScoreResult) {
	entry, err := a.Engine.RecordReview(ctx, &sub, scores)
	if err != nil {
		a.log.Warn("remote review not recorded on board",
			logger.String("id", sub.ID),
			logger.Error(err))
		return
	}
	a.log.Debug("remote review recorded", logger.String("entry_id", entry.ID))
}

// Serve runs the services until ctx is canceled or one of them fails, then
// shuts them down.
func (a *App) Serve(ctx context.Context, s *Services) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if s.Overlay != nil {
		if err := s.Overlay.Start(a.Settings.Overlay.Listen); err != nil {
			return err
		}
		g.Go(func() error {
			select {
			case err, ok := <-s.Overlay.Err():
				if ok && err != nil {
					return err
				}
			case <-gctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.Overlay.Shutdown(shutdownCtx)
		})
	}

	if s.Room != nil {
		g.Go(func() error {
			return s.Room.Run(gctx, a.Settings.Remote.PollInterval)
		})
	}

	a.log.Info("services running",
		logger.Bool("overlay", s.Overlay != nil),
		logger.Bool("remote", s.Room != nil),
		logger.Bool("alerts", s.Alerter != nil))

	err := g.Wait()
	s.Close()
	return err
}
