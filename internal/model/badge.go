package model

import (
	"strings"

	"github.com/aimusicboards/reviewboard/internal/errors"
)

// Badge labels.
const (
	BadgeUpNext  = "⭐ UP NEXT"
	BadgeSkip    = "💸 SKIP"
	BadgePaid    = "💸 PAID"
	BadgePending = "⏳ PENDING"
)

func normalizePayment(ps PaymentStatus, pt PaidType) (PaymentStatus, PaidType) {
	return PaymentStatus(strings.ToUpper(strings.TrimSpace(string(ps)))),
		PaidType(strings.ToUpper(strings.TrimSpace(string(pt))))
}

// ParsePayment normalizes operator input into the payment enums. An empty
// status means NONE; any other unknown value is a validation error.
func ParsePayment(ps PaymentStatus, pt PaidType) (PaymentStatus, PaidType, error) {
	ps, pt = normalizePayment(ps, pt)
	if ps == "" {
		ps = PaymentNone
	}

	switch ps {
	case PaymentNone, PaymentPending, PaymentPaid:
	default:
		return "", "", errors.Newf("unknown payment status %q (want NONE, PENDING or PAID)", string(ps)).
			Component("model").
			Category(errors.CategoryValidation).
			Build()
	}
	switch pt {
	case PaidTypeNone, PaidTypeSkip, PaidTypeUpNext:
	default:
		return "", "", errors.Newf("unknown paid type %q (want SKIP or UPNEXT)", string(pt)).
			Component("model").
			Category(errors.CategoryValidation).
			Build()
	}
	return ps, pt, nil
}

// PaidBadge derives the queue badge from payment state. It is total:
// unknown or empty inputs produce "".
func PaidBadge(ps PaymentStatus, pt PaidType) string {
	ps, pt = normalizePayment(ps, pt)

	switch {
	case ps == PaymentPaid && pt == PaidTypeUpNext:
		return BadgeUpNext
	case ps == PaymentPaid && pt == PaidTypeSkip:
		return BadgeSkip
	case ps == PaymentPending && (pt == PaidTypeSkip || pt == PaidTypeUpNext):
		return BadgePending
	default:
		return ""
	}
}

// RemoteBadge is the control-room variant: a PAID submission without a type
// still shows as paid, and pending purchases name what was bought.
func RemoteBadge(ps PaymentStatus, pt PaidType) string {
	ps, pt = normalizePayment(ps, pt)

	switch ps {
	case PaymentPaid:
		if badge := PaidBadge(ps, pt); badge != "" {
			return badge
		}
		return BadgePaid
	case PaymentPending:
		switch pt {
		case PaidTypeUpNext:
			return BadgePending + " (UP NEXT)"
		case PaidTypeSkip:
			return BadgePending + " (SKIP)"
		}
		return BadgePending
	default:
		return ""
	}
}

// IsPriority reports whether a submission has a settled paid priority.
func IsPriority(ps PaymentStatus, pt PaidType) bool {
	ps, pt = normalizePayment(ps, pt)
	return ps == PaymentPaid && (pt == PaidTypeSkip || pt == PaidTypeUpNext)
}
