package errors

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// common errors
	ErrTenantMissing  = errors.New("tenant is missing")
	ErrTenantNotFound = errors.New("tenant not found")

	// lookup errors
	ErrBatchNotFound      = errors.New("batch not found")
	ErrSendRecordNotFound = errors.New("send record not found")

	// ErrIdempotencyKeyTaken signals that a concurrent submission already
	// wrote the ledger row for this (tenant, client key). The loser reads
	// the winner's row and replays its outcome.
	ErrIdempotencyKeyTaken = errors.New("idempotency key already recorded")

	// batch errors
	ErrBatchEmpty    = errors.New("batch contains no messages")
	ErrBatchTooLarge = errors.New("batch exceeds the 1000 message limit")
)

// IdempotencyConflictError is returned when a client key is reused with a
// materially different payload inside its 24h window.
type IdempotencyConflictError struct {
	ClientKey string
}

func (e *IdempotencyConflictError) Error() string {
	return fmt.Sprintf("idempotency key %q was already used with a different payload", e.ClientKey)
}

// ContentRejectedError carries the content gate's verdict back to the
// caller. Reasons are the hard errors; Warnings are the soft findings
// that contributed to the score.
type ContentRejectedError struct {
	Reasons  []string
	Warnings []string
	Score    int
}

func (e *ContentRejectedError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("message rejected by content gate (score %d): %v", e.Score, e.Warnings)
	}
	return fmt.Sprintf("message rejected by content gate (score %d): %v", e.Score, e.Reasons)
}

// QuotaExceededError carries enough detail for the client to know when to retry.
type QuotaExceededError struct {
	Current  int64
	Limit    int64
	ResetsAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota exceeded: %d/%d, resets at %s", e.Current, e.Limit, e.ResetsAt.Format(time.RFC3339))
}

// SuspendedError is returned when the tenant's sending privileges were
// revoked by the reputation monitor.
type SuspendedError struct {
	Reason string
}

func (e *SuspendedError) Error() string {
	if e.Reason == "" {
		return "tenant is suspended"
	}
	return fmt.Sprintf("tenant is suspended: %s", e.Reason)
}

// EnqueueError wraps a dispatch queue failure. The admission pipeline has
// already rolled back the send record when this is returned; the request
// is safe to retry.
type EnqueueError struct {
	Cause error
}

func (e *EnqueueError) Error() string {
	return fmt.Sprintf("failed to enqueue dispatch job: %v", e.Cause)
}

func (e *EnqueueError) Unwrap() error {
	return e.Cause
}

// MaxValidationReasons caps the item-level reason list carried by
// BatchValidationError; anything beyond it is summarized.
const MaxValidationReasons = 20

// BatchValidationError reports the upfront structural validation failures
// of an all-or-nothing batch.
type BatchValidationError struct {
	Reasons   []string
	Truncated int
}

func (e *BatchValidationError) Error() string {
	if e.Truncated > 0 {
		return fmt.Sprintf("batch validation failed: %v (and %d more)", e.Reasons, e.Truncated)
	}
	return fmt.Sprintf("batch validation failed: %v", e.Reasons)
}

// NewBatchValidationError bounds the reason list at MaxValidationReasons.
func NewBatchValidationError(reasons []string) *BatchValidationError {
	if len(reasons) <= MaxValidationReasons {
		return &BatchValidationError{Reasons: reasons}
	}
	return &BatchValidationError{
		Reasons:   reasons[:MaxValidationReasons],
		Truncated: len(reasons) - MaxValidationReasons,
	}
}
