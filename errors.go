package tattle

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the failure taxonomy. Store errors wrap
// ErrStoreUnavailable so callers can keep rendering the last good feed
// instead of clearing it.
var (
	ErrNotFound         = errors.New("tattle: not found")
	ErrStoreUnavailable = errors.New("tattle: store unavailable")
	ErrExternalService  = errors.New("tattle: external service failed")
)

// ValidationError reports a mutation rejected before any write was attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tattle: invalid %s: %s", e.Field, e.Reason)
}

// PartialBatchError reports a batch order update that could not be applied
// for every id. It is distinct from total failure so the caller can retry
// the whole batch rather than attempt per-id patchup.
type PartialBatchError struct {
	FailedIDs []string
	Err       error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("tattle: batch order update incomplete for [%s]: %v",
		strings.Join(e.FailedIDs, ", "), e.Err)
}

func (e *PartialBatchError) Unwrap() error { return e.Err }

// unavailable tags a backend failure with ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("tattle: %s: %w: %w", op, ErrStoreUnavailable, err)
}
