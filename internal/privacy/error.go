package privacy

import "strings"

const redacted = "[redacted]"

// ScrubbedError carries a log-safe message while keeping the original error
// reachable through Unwrap.
type ScrubbedError struct {
	err error
	msg string
}

func (e *ScrubbedError) Error() string { return e.msg }

func (e *ScrubbedError) Unwrap() error { return e.err }

// WrapError scrubs URLs and any of the given secret values out of err's
// message. A nil err stays nil.
func WrapError(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	return &ScrubbedError{
		err: err,
		msg: RedactSecrets(ScrubMessage(err.Error()), secrets...),
	}
}

// RedactSecrets replaces every occurrence of each non-empty secret in message.
func RedactSecrets(message string, secrets ...string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		message = strings.ReplaceAll(message, s, redacted)
	}
	return message
}
