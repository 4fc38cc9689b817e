// Package notification alerts the host when a paid-priority submission
// lands in the queue.
package notification

import (
	"context"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/privacy"
)

// Sender delivers one message to every configured service.
type Sender interface {
	Send(ctx context.Context, title, message string) error
}

// ShoutrrrSender sends through a single shoutrrr router, fanning out to
// every service URL it was built with.
type ShoutrrrSender struct {
	urls   []string
	router *router.ServiceRouter
}

// NewShoutrrrSender validates urls and builds the router.
func NewShoutrrrSender(urls []string, timeout time.Duration) (*ShoutrrrSender, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		// Service URLs embed tokens; never echo them.
		return nil, errors.New(privacy.WrapError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("services", len(urls)).
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &ShoutrrrSender{urls: slices.Clone(urls), router: sender}, nil
}

// Services lists the configured service schemes.
func (s *ShoutrrrSender) Services() []string {
	names := make([]string, 0, len(s.urls))
	for _, u := range s.urls {
		names = append(names, privacy.ServiceName(u))
	}
	return names
}

// Send delivers message. The router applies its own timeout; ctx is only
// checked before sending.
func (s *ShoutrrrSender) Send(ctx context.Context, title, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	var errs []error
	for _, err := range s.router.Send(message, &params) {
		if err != nil {
			errs = append(errs, privacy.WrapError(err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.New(errors.Join(errs...)).
		Component("notification").
		Category(errors.CategoryIntegration).
		Context("failed_services", len(errs)).
		Build()
}
