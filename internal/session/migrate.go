package session

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/aimusicboards/reviewboard/internal/model"
)

// legacyVersion is assumed for documents that carry no version field.
const legacyVersion = 1

// Default values for fields that older documents may omit. Each value is a
// JSON literal merged in before typed decoding.
var (
	submissionDefaults = map[string]json.RawMessage{
		"artist":         json.RawMessage(`""`),
		"track":          json.RawMessage(`""`),
		"genre":          json.RawMessage(`""`),
		"link":           json.RawMessage(`""`),
		"notes":          json.RawMessage(`""`),
		"status":         json.RawMessage(`"` + model.StatusQueued + `"`),
		"payment_status": json.RawMessage(`"` + model.PaymentNone + `"`),
		"paid_type":      json.RawMessage(`""`),
	}

	entryDefaults = map[string]json.RawMessage{
		"artist":      json.RawMessage(`""`),
		"track":       json.RawMessage(`""`),
		"genre":       json.RawMessage(`""`),
		"link":        json.RawMessage(`""`),
		"lyrics":      json.RawMessage(`0`),
		"vocals":      json.RawMessage(`0`),
		"production":  json.RawMessage(`0`),
		"originality": json.RawMessage(`0`),
	}

	// Time fields where older writers used "" for unknown.
	timeFields = []string{"submitted_at", "reviewed_at", "claimed_at", "saved_at"}
)

type rawDocument struct {
	Version         *int                         `json:"version"`
	BoardSessionNum *int                         `json:"board_session_num"`
	NowPlaying      map[string]json.RawMessage   `json:"now_playing"`
	Submissions     []map[string]json.RawMessage `json:"submissions"`
	Entries         []map[string]json.RawMessage `json:"entries"`
	HostScript      *string                      `json:"host_script"`
}

var nullLiteral = []byte("null")

// withDefaults fills absent or null keys from defaults and drops empty time
// strings so they decode as the zero time.
func withDefaults(obj, defaults map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(obj)+len(defaults))
	for k, v := range obj {
		if bytes.Equal(bytes.TrimSpace(v), nullLiteral) {
			continue
		}
		out[k] = v
	}
	for _, k := range timeFields {
		if v, ok := out[k]; ok && string(bytes.TrimSpace(v)) == `""` {
			delete(out, k)
		}
	}
	for k, v := range defaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	return out
}

func decodeObject(obj, defaults map[string]json.RawMessage, into any) error {
	buf, err := json.Marshal(withDefaults(obj, defaults))
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, into)
}

// decoded is the outcome of reading a session document.
type decoded struct {
	state   *State
	version int
	// dropped counts submissions skipped for lacking an artist or track.
	dropped int
}

// decode parses a session document of any version into the current State.
func decode(data []byte) (decoded, error) {
	if bytes.Equal(bytes.TrimSpace(data), nullLiteral) {
		return decoded{}, fmt.Errorf("session file holds no document")
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return decoded{}, fmt.Errorf("session file is not a valid document: %w", err)
	}

	version := legacyVersion
	if raw.Version != nil {
		version = *raw.Version
	}

	out := decoded{version: version}
	state := Default()
	if raw.BoardSessionNum != nil && *raw.BoardSessionNum > 0 {
		state.BoardSessionNum = *raw.BoardSessionNum
	}
	if raw.HostScript != nil {
		state.HostScript = *raw.HostScript
	}

	for i, obj := range raw.Submissions {
		var sub model.Submission
		if err := decodeObject(obj, submissionDefaults, &sub); err != nil {
			return decoded{}, fmt.Errorf("submission %d: %w", i, err)
		}
		if sub.Artist == "" || sub.Track == "" {
			out.dropped++
			continue
		}
		normalizeStatus(&sub)
		state.Submissions = append(state.Submissions, sub)
	}

	for i, obj := range raw.Entries {
		var e model.Entry
		if err := decodeObject(obj, entryDefaults, &e); err != nil {
			return decoded{}, fmt.Errorf("entry %d: %w", i, err)
		}
		if err := model.ValidateScores(e.Scores); err != nil {
			return decoded{}, fmt.Errorf("entry %d: %w", i, err)
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		state.Entries = append(state.Entries, e)
	}

	if raw.NowPlaying != nil {
		var np model.Submission
		if err := decodeObject(raw.NowPlaying, submissionDefaults, &np); err != nil {
			return decoded{}, fmt.Errorf("now_playing: %w", err)
		}
		normalizeStatus(&np)
		state.NowPlaying = &np
	}

	out.state = state
	return out, nil
}

// normalizeStatus maps case variants such as "queued" onto the canonical
// status. Unknown values are kept so nothing the operator wrote is lost.
func normalizeStatus(sub *model.Submission) {
	if st, ok := model.ParseStatus(string(sub.Status)); ok {
		sub.Status = st
	}
}
