package services

import (
	"errors"
	"fmt"

	"github.com/tastyfund/backend/internal/repository"
)

// Kind classifies a service failure. A Kind is itself an error so callers can match with
// errors.Is(err, services.ExceedsGoal).
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	InvalidInput           Kind = "invalid_input"
	NotFound               Kind = "not_found"
	Unauthorized           Kind = "unauthorized"
	Forbidden              Kind = "forbidden"
	Conflict               Kind = "conflict"
	CampaignNotActive      Kind = "campaign_not_active"
	CampaignEnded          Kind = "campaign_ended"
	BelowMinimum           Kind = "below_minimum"
	AboveMaximum           Kind = "above_maximum"
	ExceedsGoal            Kind = "exceeds_goal"
	InvalidStateTransition Kind = "invalid_state_transition"
	StorageError           Kind = "storage_error"
)

// Error is a classified failure with a stable, user-facing message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newErr(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, StorageError for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StorageError
}

// storage classifies an error coming out of a repository. Service errors raised inside a
// transaction pass through unchanged.
func storage(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: NotFound, Msg: notFoundMsg, Err: err}
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return &Error{Kind: Conflict, Msg: "already exists", Err: err}
	}
	if errors.Is(err, repository.ErrInvalid) {
		return &Error{Kind: InvalidInput, Msg: "value out of range", Err: err}
	}
	return &Error{Kind: StorageError, Msg: "storage unavailable, try again later", Err: err}
}
