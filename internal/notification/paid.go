package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/observability/metrics"
)

const (
	// DefaultDedupTTL is how long an alerted submission stays silent.
	DefaultDedupTTL = 12 * time.Hour
	// DefaultSendTimeout bounds one background batch.
	DefaultSendTimeout = 30 * time.Second

	alertBurst    = 5
	alertInterval = time.Second
)

// PaidAlerter sends one alert per settled paid-priority submission.
// Submissions already alerted are remembered for the dedup TTL, so the same
// queue seen on every poll alerts only once.
type PaidAlerter struct {
	sender   Sender
	seen     *cache.Cache
	limiter  *rate.Limiter
	log      logger.Logger
	recorder metrics.Recorder
	timeout  time.Duration
	dedupTTL time.Duration

	wg sync.WaitGroup
}

// AlerterOption configures a PaidAlerter.
type AlerterOption func(*PaidAlerter)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) AlerterOption {
	return func(a *PaidAlerter) { a.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) AlerterOption {
	return func(a *PaidAlerter) { a.recorder = r }
}

// WithDedupTTL changes how long an alerted submission is remembered.
func WithDedupTTL(ttl time.Duration) AlerterOption {
	return func(a *PaidAlerter) { a.dedupTTL = ttl }
}

// WithRateLimit caps alerts per second.
func WithRateLimit(perSecond float64, burst int) AlerterOption {
	return func(a *PaidAlerter) { a.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// NewPaidAlerter returns an alerter sending through sender.
func NewPaidAlerter(sender Sender, opts ...AlerterOption) *PaidAlerter {
	a := &PaidAlerter{
		sender:   sender,
		limiter:  rate.NewLimiter(rate.Every(alertInterval), alertBurst),
		log:      logger.Global().Module("notification"),
		recorder: metrics.NoOpRecorder{},
		timeout:  DefaultSendTimeout,
		dedupTTL: DefaultDedupTTL,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.seen = cache.New(a.dedupTTL, max(a.dedupTTL, time.Minute))
	return a
}

// Notify sends alerts for the paid submissions in subs not alerted yet and
// returns how many were sent. A failed alert is forgotten so the next call
// retries it.
func (a *PaidAlerter) Notify(ctx context.Context, subs []model.Submission) (int, error) {
	var (
		sent int
		errs []error
	)
	for i := range subs {
		sub := &subs[i]
		if !model.IsPriority(sub.PaymentStatus, sub.PaidType) {
			continue
		}
		key := dedupKey(sub)
		// Add fails when the key is present, which makes claim-and-send atomic.
		if err := a.seen.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
			continue
		}

		if err := a.send(ctx, sub); err != nil {
			a.seen.Delete(key)
			errs = append(errs, err)
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// Observe is Notify in the background. Failures are logged.
func (a *PaidAlerter) Observe(subs []model.Submission) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if _, err := a.Notify(ctx, subs); err != nil {
			a.log.Warn("paid priority alert failed", logger.Error(err))
		}
	}()
}

// Close waits for background alerts.
func (a *PaidAlerter) Close() {
	a.wg.Wait()
}

func (a *PaidAlerter) send(ctx context.Context, sub *model.Submission) error {
	if err := a.limiter.Wait(ctx); err != nil {
		a.recorder.RecordOperation(metrics.OpNotifyPaid, metrics.StatusSkipped)
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryTimeout).
			Build()
	}

	title, body := Message(sub)
	start := time.Now()
	err := a.sender.Send(ctx, title, body)
	a.recorder.RecordDuration(metrics.OpNotifyPaid, time.Since(start).Seconds())
	if err != nil {
		a.recorder.RecordOperation(metrics.OpNotifyPaid, metrics.StatusError)
		a.recorder.RecordError(metrics.OpNotifyPaid, "send")
		return err
	}

	a.recorder.RecordOperation(metrics.OpNotifyPaid, metrics.StatusSuccess)
	a.log.Info("paid priority alert sent",
		logger.String("id", sub.ID),
		logger.String("artist", sub.Artist),
		logger.String("paid_type", string(sub.PaidType)))
	return nil
}

// Message renders the alert for sub.
func Message(sub *model.Submission) (title, body string) {
	title = "Paid priority: " + sub.Badge()

	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s", sub.Artist, sub.Track)
	if sub.Genre != "" {
		fmt.Fprintf(&b, " (%s)", sub.Genre)
	}
	if sub.Link != "" {
		b.WriteString("\n" + sub.Link)
	}
	return title, b.String()
}

// dedupKey identifies a purchase. An upgrade from SKIP to UPNEXT is a new
// purchase and alerts again.
func dedupKey(sub *model.Submission) string {
	id := sub.ID
	if id == "" {
		id = strings.ToLower(sub.Artist) + "|" + strings.ToLower(sub.Track) + "|" +
			strconv.FormatInt(sub.SubmittedAt.Unix(), 10)
	}
	return id + "|" + strings.ToUpper(string(sub.PaidType))
}
