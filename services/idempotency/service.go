package idempotency

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	apperrors "github.com/sendgate/sendgate/internal/errors"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/models"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

// ledgerTTL is how long a client key pins its original outcome.
const ledgerTTL = 24 * time.Hour

type idempotencyService struct {
	ledger interfaces.IdempotencyRepository
	log    logger.Logger
}

func NewIdempotencyService(ledger interfaces.IdempotencyRepository, log logger.Logger) interfaces.IdempotencyService {
	return &idempotencyService{
		ledger: ledger,
		log:    log,
	}
}

func (s *idempotencyService) Fingerprint(req *dto.SendRequest) string {
	return fingerprintRequest(req)
}

func (s *idempotencyService) Resolve(ctx context.Context, tenantID, clientKey string, fingerprint string) (*dto.IdempotencyResolution, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "idempotencyService.Resolve")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	record, err := s.ledger.GetByKey(ctx, tenantID, clientKey)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to look up idempotency key")
	}
	if record == nil {
		return &dto.IdempotencyResolution{New: true}, nil
	}

	if record.IsExpired(utils.Now()) {
		if err := s.ledger.Delete(ctx, tenantID, clientKey); err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrap(err, "failed to evict expired idempotency record")
		}
		span.LogKV("event", "expired record evicted")
		return &dto.IdempotencyResolution{New: true}, nil
	}

	if record.RequestFingerprint != fingerprint {
		err := &apperrors.IdempotencyConflictError{ClientKey: clientKey}
		tracing.TraceErr(span, err)
		return nil, err
	}

	// Replay: the ledger row carries the acceptance the original caller
	// received, so the response never reveals later dispatch progress.
	span.LogKV("event", "replay", "sendRecordId", record.SendRecordID)
	return &dto.IdempotencyResolution{
		New:          false,
		SendRecordID: record.SendRecordID,
		Status:       record.AcceptedStatus,
		Warnings:     record.Warnings,
	}, nil
}

func (s *idempotencyService) Persist(ctx context.Context, tenantID, clientKey, fingerprint string, acceptance *dto.Acceptance) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "idempotencyService.Persist")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	record := &models.IdempotencyRecord{
		TenantID:           tenantID,
		ClientKey:          clientKey,
		RequestFingerprint: fingerprint,
		SendRecordID:       acceptance.SendRecordID,
		AcceptedStatus:     acceptance.Status,
		Warnings:           acceptance.Warnings,
		ExpiresAt:          utils.Now().Add(ledgerTTL),
	}
	if err := s.ledger.Create(ctx, record); err != nil {
		if errors.Is(err, apperrors.ErrIdempotencyKeyTaken) {
			span.LogKV("event", "lost idempotency race")
			return err
		}
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to persist idempotency record")
	}
	return nil
}

func (s *idempotencyService) Forget(ctx context.Context, tenantID, clientKey string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "idempotencyService.Forget")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	if err := s.ledger.Delete(ctx, tenantID, clientKey); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to remove idempotency record")
	}
	return nil
}
