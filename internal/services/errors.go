package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/observer-backend/internal/data/repos/storeerr"
)

var (
	// ErrAlreadyFired is benign: the (user, event) pair was claimed before.
	ErrAlreadyFired = errors.New("event already fired")
	// ErrInvalidTarget is returned for malformed notification targets.
	ErrInvalidTarget = errors.New("invalid notification target")
	// ErrStoreUnavailable marks a transient failure the caller may retry.
	ErrStoreUnavailable = storeerr.ErrUnavailable
	// ErrPartialEffect means the event was claimed but some effects failed.
	ErrPartialEffect = errors.New("event fired with partial effects")
	// ErrPreconditionFailed is returned when required flags are missing.
	ErrPreconditionFailed = errors.New("event preconditions not met")
	// ErrInvalidArgument wraps every input validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	// ErrForbidden marks an authenticated caller acting outside its role,
	// or a player claiming something only the server or an operator grants.
	ErrForbidden = errors.New("forbidden")
)

// PartialEffectError lists the effects that failed after a successful claim.
type PartialEffectError struct {
	EventID  string
	Warnings []string
}

func (e *PartialEffectError) Error() string {
	return fmt.Sprintf("event %s fired with partial effects: %s", e.EventID, strings.Join(e.Warnings, "; "))
}

func (e *PartialEffectError) Unwrap() error { return ErrPartialEffect }

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// storeErr maps repo-level not-found onto the service sentinel and keeps
// ErrStoreUnavailable matchable.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storeerr.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
