// Package session persists the board state between runs as a single
// versioned JSON document.
//
// Older documents are upgraded on load: missing optional fields are filled
// from a default table and legacy entries receive an identity. Documents
// written by a newer version load permissively, with a warning.
package session

import (
	"encoding/json"
	"io/fs"
	"os"
	"time"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/fsutil"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/model"
)

// CurrentVersion is the schema version written by Save.
// Version 5 predates entry identity; 6 adds entry ids and remote fields.
const CurrentVersion = 6

// State is the complete persisted board.
type State struct {
	Version         int                `json:"version"`
	SavedAt         time.Time          `json:"saved_at"`
	BoardSessionNum int                `json:"board_session_num"`
	NowPlaying      *model.Submission  `json:"now_playing"`
	Submissions     []model.Submission `json:"submissions"`
	Entries         []model.Entry      `json:"entries"`
	HostScript      string             `json:"host_script"`
}

// Default returns the state used when no session file exists.
func Default() *State {
	return &State{
		Version:         CurrentVersion,
		BoardSessionNum: 1,
		Submissions:     []model.Submission{},
		Entries:         []model.Entry{},
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.Submissions = append([]model.Submission(nil), s.Submissions...)
	c.Entries = append([]model.Entry(nil), s.Entries...)
	if s.NowPlaying != nil {
		np := *s.NowPlaying
		c.NowPlaying = &np
	}
	return &c
}

// Store reads and writes the session file at a fixed path.
type Store struct {
	path string
	log  logger.Logger
	now  func() time.Time
}

// NewStore returns a Store for path. A nil logger uses the global logger.
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Global().Module("session")
	}
	return &Store{path: path, log: log, now: time.Now}
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Save writes state atomically. The caller's state is not modified.
func (s *Store) Save(state *State) error {
	doc := state.Clone()
	doc.Version = CurrentVersion
	doc.SavedAt = model.Timestamp(s.now())
	if doc.Submissions == nil {
		doc.Submissions = []model.Submission{}
	}
	if doc.Entries == nil {
		doc.Entries = []model.Entry{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.New(err).
			Component("session").
			Category(errors.CategoryState).
			Context("operation", "encode").
			Build()
	}

	if err := fsutil.WriteFileAtomic(s.path, data, fsutil.PermFile); err != nil {
		return errors.New(err).
			Component("session").
			Category(errors.CategoryFileIO).
			Context("operation", "save").
			Context("path", s.path).
			Build()
	}

	s.log.Debug("session saved",
		logger.String("path", s.path),
		logger.Int("submissions", len(doc.Submissions)),
		logger.Int("entries", len(doc.Entries)))
	return nil
}

// Load reads the session file. A missing file yields Default. A file that
// is not a valid session document yields a corrupt-state error.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info("no session file, starting fresh", logger.String("path", s.path))
		return Default(), nil
	}
	if err != nil {
		return nil, errors.New(err).
			Component("session").
			Category(errors.CategoryFileIO).
			Context("operation", "load").
			Context("path", s.path).
			Build()
	}

	res, err := decode(data)
	if err != nil {
		return nil, errors.New(err).
			Component("session").
			Category(errors.CategoryCorruptState).
			Context("path", s.path).
			Build()
	}

	switch {
	case res.version > CurrentVersion:
		s.log.Warn("session file written by a newer version, loading known fields",
			logger.Int("file_version", res.version),
			logger.Int("supported_version", CurrentVersion))
	case res.version < CurrentVersion:
		s.log.Info("upgrading session file",
			logger.Int("from_version", res.version),
			logger.Int("to_version", CurrentVersion))
	}
	if res.dropped > 0 {
		s.log.Warn("skipped submissions without artist or track", logger.Int("count", res.dropped))
	}
	return res.state, nil
}
