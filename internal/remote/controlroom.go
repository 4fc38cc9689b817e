package remote

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/observability/metrics"
)

// ApprovalThreshold is the total at which the board accepts a track.
const ApprovalThreshold = 30

// API is the part of the service the control room drives.
type API interface {
	FetchQueue(ctx context.Context) ([]model.Submission, error)
	Claim(ctx context.Context, id, claimedBy string) error
	SubmitScore(ctx context.Context, id string, scores model.Scores, notes string) (ScoreResult, error)
	LiveStatus(ctx context.Context) (bool, error)
	ToggleLive(ctx context.Context) (bool, error)
	PublishFinalRecap(sub *model.Submission, scores model.Scores, res ScoreResult)
}

// ScoredFunc is called after the service accepts a score.
type ScoredFunc func(ctx context.Context, sub model.Submission, scores model.Scores, res ScoreResult)

// QueueFunc is called with every freshly fetched queue.
type QueueFunc func(items []model.Submission)

// ControlRoom mirrors the remote queue for an operator. It keeps the
// selection by submission id across polls, and keeps the draft scores
// until a different submission is selected.
type ControlRoom struct {
	api      API
	log      logger.Logger
	gauges   *metrics.BoardMetrics
	onScored ScoredFunc
	onQueue  QueueFunc

	mu       sync.Mutex
	queue    []model.Submission
	queueErr string
	live     *bool
	liveErr  string
	selected string
	loadedID string
	scores   model.Scores
	notes    string
}

// RoomOption configures a ControlRoom.
type RoomOption func(*ControlRoom)

// WithRoomLogger sets the logger.
func WithRoomLogger(l logger.Logger) RoomOption {
	return func(r *ControlRoom) { r.log = l }
}

// WithGauges publishes the queue size on m.
func WithGauges(m *metrics.BoardMetrics) RoomOption {
	return func(r *ControlRoom) { r.gauges = m }
}

// WithScoredHook registers fn to run after each accepted score.
func WithScoredHook(fn ScoredFunc) RoomOption {
	return func(r *ControlRoom) { r.onScored = fn }
}

// WithQueueHook registers fn to run after each successful poll.
func WithQueueHook(fn QueueFunc) RoomOption {
	return func(r *ControlRoom) { r.onQueue = fn }
}

// NewControlRoom returns an empty control room backed by api.
func NewControlRoom(api API, opts ...RoomOption) *ControlRoom {
	r := &ControlRoom{
		api: api,
		log: logger.Global().Module("remote"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run refreshes live status and the queue immediately, then polls the
// queue every interval until ctx is done. Poll failures are logged and
// leave the last known queue in place.
func (r *ControlRoom) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	_ = r.RefreshStatus(ctx)
	_ = r.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_ = r.Refresh(ctx)
		}
	}
}

// Refresh fetches the queue and replaces the local copy wholesale.
func (r *ControlRoom) Refresh(ctx context.Context) error {
	items, err := r.api.FetchQueue(ctx)
	if err != nil {
		r.mu.Lock()
		r.queueErr = err.Error()
		kept := len(r.queue)
		r.mu.Unlock()
		r.log.Warn("queue refresh failed, keeping last known queue",
			logger.Int("kept", kept),
			logger.Error(err))
		return err
	}

	r.mu.Lock()
	r.queue = items
	r.queueErr = ""
	if r.selected != "" && r.indexLocked(r.selected) < 0 {
		r.log.Debug("selected submission left the queue", logger.String("id", r.selected))
		r.selected = ""
	}
	r.mu.Unlock()

	if r.gauges != nil {
		r.gauges.RemoteQueueSize.Set(float64(len(items)))
	}
	if r.onQueue != nil {
		r.onQueue(slices.Clone(items))
	}
	return nil
}

// RefreshStatus reloads the live status.
func (r *ControlRoom) RefreshStatus(ctx context.Context) error {
	open, err := r.api.LiveStatus(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.liveErr = err.Error()
		return err
	}
	r.live = &open
	r.liveErr = ""
	return nil
}

// ToggleLive flips whether the service accepts submissions.
func (r *ControlRoom) ToggleLive(ctx context.Context) (bool, error) {
	open, err := r.api.ToggleLive(ctx)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	r.live = &open
	r.liveErr = ""
	r.mu.Unlock()
	return open, nil
}

// Status renders the operator status line.
func (r *ControlRoom) Status() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	switch {
	case r.liveErr != "":
		fmt.Fprintf(&b, "Status: error (%s)", r.liveErr)
	case r.live == nil:
		b.WriteString("Status: …")
	case *r.live:
		b.WriteString("Status: LIVE (Accepting Submissions)")
	default:
		b.WriteString("Status: OFFLINE (Closed)")
	}
	if r.queueErr != "" {
		fmt.Fprintf(&b, "  | Queue err: %s", r.queueErr)
	}
	return b.String()
}

// Queue returns the last known queue.
func (r *ControlRoom) Queue() []model.Submission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.queue)
}

// Select makes id the current submission. Draft scores and notes reset
// only when id differs from the last submission loaded.
func (r *ControlRoom) Select(id string) (model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return model.Submission{}, errors.Newf("submission %q is not in the queue", id).
			Component("remote").
			Category(errors.CategoryNotFound).
			Context("id", id).
			Build()
	}

	r.selected = id
	if r.loadedID != id {
		r.scores = model.Scores{}
		r.notes = ""
		r.loadedID = id
	}
	return r.queue[i], nil
}

// ClearSelection drops the current selection; the draft is kept.
func (r *ControlRoom) ClearSelection() {
	r.mu.Lock()
	r.selected = ""
	r.mu.Unlock()
}

// Selected returns the selected submission as of the last poll.
func (r *ControlRoom) Selected() (model.Submission, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectedLocked()
}

// SetDraft stores the scores and notes for the selected submission.
func (r *ControlRoom) SetDraft(scores model.Scores, notes string) error {
	if err := model.ValidateScores(scores); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.selectedLocked(); !ok {
		return errNoSelection()
	}
	r.scores = scores
	r.notes = strings.TrimSpace(notes)
	return nil
}

// Draft returns the scores and notes being prepared.
func (r *ControlRoom) Draft() (model.Scores, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scores := r.scores
	if scores.Replay != nil {
		v := *scores.Replay
		scores.Replay = &v
	}
	return scores, r.notes
}

// Verdict renders the running total line for the draft.
func Verdict(total int) string {
	if total >= ApprovalThreshold {
		return fmt.Sprintf("Total: %d  (✅ Approved (Board))", total)
	}
	return fmt.Sprintf("Total: %d  (❌ Rejected)", total)
}

// Claim claims the selected submission for this operator and refreshes.
func (r *ControlRoom) Claim(ctx context.Context) error {
	sub, ok := r.Selected()
	if !ok {
		return errNoSelection()
	}
	if err := r.api.Claim(ctx, sub.ID, ""); err != nil {
		return err
	}
	_ = r.Refresh(ctx)
	return nil
}

// Submit sends the draft for the selected submission. On success the final
// recap is published in the background, the scored hook runs, and the queue
// is refreshed.
func (r *ControlRoom) Submit(ctx context.Context) (ScoreResult, error) {
	r.mu.Lock()
	sub, ok := r.selectedLocked()
	scores, notes := r.scores, r.notes
	r.mu.Unlock()
	if !ok {
		return ScoreResult{}, errNoSelection()
	}

	res, err := r.api.SubmitScore(ctx, sub.ID, scores, notes)
	if err != nil {
		return ScoreResult{}, err
	}

	r.api.PublishFinalRecap(&sub, scores, res)
	if r.onScored != nil {
		r.onScored(ctx, sub, scores, res)
	}
	_ = r.Refresh(ctx)
	return res, nil
}

func (r *ControlRoom) selectedLocked() (model.Submission, bool) {
	if r.selected == "" {
		return model.Submission{}, false
	}
	i := r.indexLocked(r.selected)
	if i < 0 {
		return model.Submission{}, false
	}
	return r.queue[i], true
}

func (r *ControlRoom) indexLocked(id string) int {
	return slices.IndexFunc(r.queue, func(s model.Submission) bool { return s.ID == id })
}

func errNoSelection() error {
	return errors.Newf("select a submission first").
		Component("remote").
		Category(errors.CategoryValidation).
		Build()
}
