package model

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aimusicboards/reviewboard/internal/errors"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks struct tags on v and converts failures into a
// validation-category error naming every offending field.
func Validate(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.New(err).Component("model").Category(errors.CategoryValidation).Build()
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describeFieldError(fe))
	}
	return errors.Newf("invalid input: %s", strings.Join(problems, "; ")).
		Component("model").
		Category(errors.CategoryValidation).
		Context("fields", len(fieldErrs)).
		Build()
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// NewSubmission builds a queued submission from operator input. Text is
// trimmed first, so whitespace-only artist or track is rejected.
func NewSubmission(artist, track, genre, link string, now time.Time) (Submission, error) {
	sub := Submission{
		Artist:        Clean(artist),
		Track:         Clean(track),
		Genre:         Clean(genre),
		Link:          Clean(link),
		SubmittedAt:   Timestamp(now),
		Status:        StatusQueued,
		PaymentStatus: PaymentNone,
		PaidType:      PaidTypeNone,
	}
	if err := Validate(&sub); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// ValidateScores rejects any category outside 0..10.
func ValidateScores(s Scores) error {
	return Validate(&s)
}

// ParseScores reads "L V P O" or "L V P O R" from operator input.
func ParseScores(fields []string) (Scores, error) {
	if len(fields) != 4 && len(fields) != 5 {
		return Scores{}, errors.Newf("expected 4 or 5 scores (lyrics vocals production originality [replay]), got %d", len(fields)).
			Component("model").
			Category(errors.CategoryValidation).
			Build()
	}

	vals := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return Scores{}, errors.Newf("score %q is not a whole number", f).
				Component("model").
				Category(errors.CategoryValidation).
				Build()
		}
		vals[i] = n
	}

	s := Scores{Lyrics: vals[0], Vocals: vals[1], Production: vals[2], Originality: vals[3]}
	if len(vals) == 5 {
		s.Replay = &vals[4]
	}
	if err := ValidateScores(s); err != nil {
		return Scores{}, err
	}
	return s, nil
}
