package interfaces

import (
	"context"

	"github.com/sendgate/sendgate/dto"
)

type IdempotencyService interface {
	// Resolve decides whether a keyed submission is new, a replay of the
	// original (returning its outcome verbatim), or a conflict.
	Resolve(ctx context.Context, tenantID, clientKey string, fingerprint string) (*dto.IdempotencyResolution, error)
	// Persist writes the ledger entry as soon as the send record is
	// durable, pinning the acceptance the original caller receives.
	// Returns ErrIdempotencyKeyTaken when a concurrent duplicate won the
	// (tenant, client key) race first.
	Persist(ctx context.Context, tenantID, clientKey, fingerprint string, acceptance *dto.Acceptance) error
	// Forget removes the ledger entry again when the admission it covered
	// was rolled back.
	Forget(ctx context.Context, tenantID, clientKey string) error
	// Fingerprint hashes the normalized payload; order-insensitive for
	// cc/bcc/tags.
	Fingerprint(req *dto.SendRequest) string
}

type QuotaService interface {
	Check(ctx context.Context, tenantID string) *dto.QuotaStatus
	// Increment is only called after a send was durably enqueued; failures
	// are logged, never raised.
	Increment(ctx context.Context, tenantID string, n int64)
}

type ContentGateService interface {
	Evaluate(ctx context.Context, req *dto.SendRequest) *dto.ContentEvaluation
}

type AdmissionService interface {
	Submit(ctx context.Context, tenantID string, req *dto.SendRequest) (*dto.Acceptance, error)
	// SubmitBatchItem runs the pipeline for one batch item, skipping the
	// idempotency ledger (batches do not use client keys).
	SubmitBatchItem(ctx context.Context, tenantID, batchID string, req *dto.SendRequest) (*dto.Acceptance, error)
}

type BatchService interface {
	CreateBatch(ctx context.Context, tenantID string, req *dto.BatchRequest) (*dto.BatchAcceptance, error)
	GetBatchStatus(ctx context.Context, tenantID, batchID string) (*dto.BatchStatusResponse, error)
	GetBatchEmails(ctx context.Context, tenantID, batchID string) ([]*dto.BatchEmail, error)
}

type ReputationService interface {
	CalculateRates(ctx context.Context, tenantID string) (*dto.ReputationRates, error)
	CheckAndSuspend(ctx context.Context, tenantID string) error
	MonitorAllCompanies(ctx context.Context) (*dto.SweepReport, error)
}
