package board

import (
	"context"
	"slices"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/leaderboard"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/session"
)

// AddSubmission appends a new submission to the queue.
func (e *Engine) AddSubmission(ctx context.Context, artist, track, genre, link string) (model.Submission, error) {
	var sub model.Submission
	err := e.Do(ctx, func() error {
		var err error
		sub, err = e.queue.Add(artist, track, genre, link)
		return err
	})
	return sub, err
}

// RemoveSubmission deletes the submission at pos.
func (e *Engine) RemoveSubmission(ctx context.Context, pos int) (model.Submission, error) {
	var sub model.Submission
	err := e.Do(ctx, func() error {
		var err error
		sub, err = e.queue.Remove(pos)
		return err
	})
	return sub, err
}

// StatusUpdate changes a submission's status and, when Notes is set, its
// notes in the same step.
type StatusUpdate struct {
	Status model.Status
	Notes  *string
}

// SetStatus applies u to the submission at pos. Moving backwards is allowed.
func (e *Engine) SetStatus(ctx context.Context, pos int, u StatusUpdate) (model.Submission, error) {
	var sub model.Submission
	err := e.Do(ctx, func() error {
		if u.Notes != nil {
			if _, err := e.queue.EditNotes(pos, *u.Notes); err != nil {
				return err
			}
		}
		var err error
		sub, err = e.queue.SetStatus(pos, u.Status)
		return err
	})
	return sub, err
}

// EditNotes replaces the notes of the submission at pos.
func (e *Engine) EditNotes(ctx context.Context, pos int, notes string) (model.Submission, error) {
	var sub model.Submission
	err := e.Do(ctx, func() error {
		var err error
		sub, err = e.queue.EditNotes(pos, notes)
		return err
	})
	return sub, err
}

// SetPayment records a payment outcome for the submission at pos.
func (e *Engine) SetPayment(ctx context.Context, pos int, ps model.PaymentStatus, pt model.PaidType) (model.Submission, error) {
	var sub model.Submission
	err := e.Do(ctx, func() error {
		var err error
		sub, err = e.queue.SetPayment(pos, ps, pt)
		return err
	})
	return sub, err
}

// PlaySubmission puts the submission at pos on the now-playing banner.
func (e *Engine) PlaySubmission(ctx context.Context, pos int) (model.Submission, error) {
	var sub model.Submission
	err := e.Do(ctx, func() error {
		var err error
		sub, err = e.queue.PlayAt(pos)
		return err
	})
	return sub, err
}

// SetNowPlaying shows a copy of sub on the banner; nil clears it.
func (e *Engine) SetNowPlaying(ctx context.Context, sub *model.Submission) error {
	return e.Do(ctx, func() error {
		e.queue.SetNowPlaying(sub)
		return nil
	})
}

// ClearNowPlaying empties the banner.
func (e *Engine) ClearNowPlaying(ctx context.Context) error {
	return e.SetNowPlaying(ctx, nil)
}

// PlayEntry replays a leaderboard row on the banner.
func (e *Engine) PlayEntry(ctx context.Context, entryID string) (model.Submission, error) {
	var sub model.Submission
	err := e.Do(ctx, func() error {
		entry, err := e.findEntry(entryID)
		if err != nil {
			return err
		}
		sub = entry.AsNowPlaying()
		e.queue.SetNowPlaying(&sub)
		return nil
	})
	return sub, err
}

func (e *Engine) findEntry(id string) (*model.Entry, error) {
	i := slices.IndexFunc(e.entries, func(en model.Entry) bool { return en.ID == id })
	if i < 0 {
		return nil, errors.Newf("entry %q not found", id).
			Component("board").
			Category(errors.CategoryNotFound).
			Build()
	}
	return &e.entries[i], nil
}

// ScoreRequest scores one queued submission.
type ScoreRequest struct {
	Position int
	Scores   model.Scores
	// Notes, when set, replace the submission's notes.
	Notes *string
}

// Score creates a leaderboard entry from the submission at req.Position,
// marks the submission Reviewed and re-sorts the board.
func (e *Engine) Score(ctx context.Context, req ScoreRequest) (model.Entry, error) {
	var entry model.Entry
	err := e.Do(ctx, func() error {
		if err := model.ValidateScores(req.Scores); err != nil {
			return err
		}
		sub, err := e.queue.Get(req.Position)
		if err != nil {
			return err
		}

		entry = model.NewEntry(&sub, req.Scores, e.now())
		e.addEntry(ctx, &entry)

		if req.Notes != nil {
			if _, err := e.queue.EditNotes(req.Position, *req.Notes); err != nil {
				return err
			}
		}
		_, err = e.queue.SetStatus(req.Position, model.StatusReviewed)
		return err
	})
	return entry, err
}

// RecordReview adds an entry for a submission that is not in the local
// queue, such as one scored through the remote service.
func (e *Engine) RecordReview(ctx context.Context, sub *model.Submission, scores model.Scores) (model.Entry, error) {
	var entry model.Entry
	err := e.Do(ctx, func() error {
		if err := model.Validate(sub); err != nil {
			return err
		}
		if err := model.ValidateScores(scores); err != nil {
			return err
		}
		entry = model.NewEntry(sub, scores, e.now())
		e.addEntry(ctx, &entry)
		return nil
	})
	return entry, err
}

func (e *Engine) addEntry(ctx context.Context, entry *model.Entry) {
	e.entries = append(e.entries, *entry)
	leaderboard.Sort(e.entries)
	e.markChanged()

	if e.gauges != nil {
		e.gauges.ReviewsTotal.Inc()
	}
	e.log.Info("review scored",
		logger.String("entry_id", entry.ID),
		logger.String("artist", entry.Artist),
		logger.String("track", entry.Track),
		logger.Int("total", entry.Total()))

	if e.archiver != nil {
		if err := e.archiver.Record(ctx, e.boardSession, entry); err != nil {
			e.log.Warn("failed to archive review", logger.String("entry_id", entry.ID), logger.Error(err))
		}
	}
}

// DeleteEntry removes a leaderboard entry by identity.
func (e *Engine) DeleteEntry(ctx context.Context, entryID string) error {
	return e.Do(ctx, func() error {
		entries, err := leaderboard.Remove(e.entries, entryID)
		if err != nil {
			return err
		}
		e.entries = entries
		e.markChanged()
		e.forget(ctx, entryID)
		return nil
	})
}

// DeleteMatching removes the single entry equal by value to match and
// returns it. Several equal entries are reported as a conflict.
func (e *Engine) DeleteMatching(ctx context.Context, match *model.Entry) (model.Entry, error) {
	var removed model.Entry
	err := e.Do(ctx, func() error {
		i := slices.IndexFunc(e.entries, func(en model.Entry) bool { return en.SameRecord(match) })
		if i >= 0 {
			removed = e.entries[i]
		}
		entries, err := leaderboard.RemoveMatch(e.entries, match)
		if err != nil {
			return err
		}
		e.entries = entries
		e.markChanged()
		e.forget(ctx, removed.ID)
		return nil
	})
	return removed, err
}

func (e *Engine) forget(ctx context.Context, entryID string) {
	if e.archiver == nil {
		return
	}
	if err := e.archiver.Forget(ctx, entryID); err != nil {
		e.log.Warn("failed to remove review from archive", logger.String("entry_id", entryID), logger.Error(err))
	}
}

// NewBoardSession starts the next episode. The board and queue are kept.
func (e *Engine) NewBoardSession(ctx context.Context) (int, error) {
	var num int
	err := e.Do(ctx, func() error {
		e.boardSession++
		num = e.boardSession
		e.markChanged()
		e.log.Info("new board session", logger.Int("board_session", num))
		return nil
	})
	return num, err
}

// ClearAll empties the queue, the board and the banner. The session
// counter and host script are kept.
func (e *Engine) ClearAll(ctx context.Context) error {
	return e.Do(ctx, func() error {
		e.queue.Clear()
		e.entries = nil
		e.markChanged()
		e.log.Info("board cleared")
		return nil
	})
}

// SetHostScript stores the host's free-form script.
func (e *Engine) SetHostScript(ctx context.Context, script string) error {
	return e.Do(ctx, func() error {
		e.hostScript = script
		e.markChanged()
		return nil
	})
}

// Snapshot returns a copy of the whole board state.
func (e *Engine) Snapshot(ctx context.Context) (*session.State, error) {
	var st *session.State
	err := e.Do(ctx, func() error {
		st = e.snapshot()
		return nil
	})
	return st, err
}

// Top returns the ranked top n qualifying entries.
func (e *Engine) Top(ctx context.Context, n int) ([]leaderboard.Row, error) {
	var rows []leaderboard.Row
	err := e.Do(ctx, func() error {
		rows = leaderboard.Rank(leaderboard.TopN(e.entries, n, e.cfg.QualifyingMin))
		return nil
	})
	return rows, err
}

// Display returns exactly DisplaySlots rows for the on-air top list,
// padding with empty rows.
func (e *Engine) Display(ctx context.Context) ([]leaderboard.Row, error) {
	rows, err := e.Top(ctx, e.cfg.DisplaySlots)
	if err != nil {
		return nil, err
	}
	return leaderboard.Slots(rows, e.cfg.DisplaySlots), nil
}

// TopText renders the leaderboard as paste-ready text. It returns "" when
// nothing qualifies.
func (e *Engine) TopText(ctx context.Context) (string, error) {
	var text string
	err := e.Do(ctx, func() error {
		rows := leaderboard.Rank(leaderboard.TopN(e.entries, e.cfg.LeaderboardLimit, e.cfg.QualifyingMin))
		text = leaderboard.FormatText(rows, leaderboard.TextOptions{
			Title:        e.cfg.Title,
			Limit:        e.cfg.LeaderboardLimit,
			MinTotal:     e.cfg.QualifyingMin,
			MaxTotal:     e.cfg.MaxTotal,
			SessionLabel: e.sessionLabel(),
		})
		return nil
	})
	return text, err
}

// SessionLabel returns the current episode heading.
func (e *Engine) SessionLabel(ctx context.Context) (string, error) {
	var label string
	err := e.Do(ctx, func() error {
		label = e.sessionLabel()
		return nil
	})
	return label, err
}

func (e *Engine) sessionLabel() string {
	return leaderboard.SessionLabel(e.boardSession, e.now().In(e.cfg.Location))
}

// ExportNow publishes the artifact immediately and reports failures.
func (e *Engine) ExportNow(ctx context.Context) error {
	return e.Do(ctx, func() error {
		return e.exporter.ExportNow(ctx)
	})
}

// Artifact renders the current artifact without publishing it.
func (e *Engine) Artifact(ctx context.Context) ([]byte, error) {
	var data []byte
	err := e.Do(ctx, func() error {
		var err error
		data, err = e.exporter.Render()
		return err
	})
	return data, err
}
