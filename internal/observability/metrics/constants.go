package metrics

// Operation outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// Operation names shared by the export and remote components.
const (
	OpFlush      = "flush"
	OpExportNow  = "export_now"
	OpPublish    = "publish" // suffixed with ":<target>"
	OpPoll       = "poll"
	OpClaim      = "claim"
	OpScore      = "score"
	OpToggle     = "toggle"
	OpRecap      = "recap"
	OpSaveState  = "save_state"
	OpArchive    = "archive"
	OpNotifyPaid = "notify_paid"
)

// Namespace prefixes every metric name.
const Namespace = "reviewboard"

// durationBuckets cover 1ms to roughly 16s, enough for a stalled upload
// to land in a real bucket before the 10s timeout.
var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 16}
