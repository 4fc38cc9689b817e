// Package targets provides the destinations the leaderboard artifact is
// published to: a local file, FTP and SFTP uploads, and an MQTT topic.
package targets

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aimusicboards/reviewboard/internal/errors"
)

// Common defaults.
const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = 500 * time.Millisecond
	DefaultTimeout      = 10 * time.Second
	DefaultFTPPort      = 21
	DefaultSSHPort      = 22
)

// transientErrorPatterns contains substrings that indicate a retriable error.
var transientErrorPatterns = []string{
	"connection reset",
	"connection refused",
	"connection closed",
	"timeout",
	"temporary",
	"broken pipe",
	"no route to host",
	"EOF",
	"ssh: handshake failed",
	"resource temporarily unavailable",
}

// IsTransientError reports whether err is likely temporary and worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if os.IsTimeout(err) {
		return true
	}

	errStr := err.Error()
	for _, pattern := range transientErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// RetryConfig controls WithRetry.
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

// DefaultRetryConfig returns the retry policy used by the network targets.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		Backoff:    DefaultRetryBackoff,
	}
}

// WithRetry runs op until it succeeds, fails with a non-transient error, or
// MaxRetries attempts are used. Backoff grows linearly and is cut short
// when ctx ends.
func WithRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	var lastErr error
	for attempt := range cfg.MaxRetries {
		if err := ctx.Err(); err != nil {
			return errors.New(err).
				Component("export").
				Category(errors.CategoryTimeout).
				Context("attempt", attempt).
				Build()
		}

		err := op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return err
		}
		lastErr = err

		if attempt == cfg.MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(cfg.Backoff * time.Duration(attempt+1)):
		}
	}

	return errors.New(lastErr).
		Component("export").
		Category(errors.CategoryNetwork).
		Context("attempts", cfg.MaxRetries).
		Build()
}

// DefaultKnownHostsFile returns ~/.ssh/known_hosts, or "" when the home
// directory is unknown.
func DefaultKnownHostsFile() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".ssh", "known_hosts")
}

func configError(target, msg string) error {
	return errors.Newf("%s: %s", target, msg).
		Component("export").
		Category(errors.CategoryConfiguration).
		Context("target", target).
		Build()
}
