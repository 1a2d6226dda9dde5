package admission

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/enum"
	apperrors "github.com/sendgate/sendgate/internal/errors"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/models"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

type admissionService struct {
	idempotency interfaces.IdempotencyService
	contentGate interfaces.ContentGateService
	quota       interfaces.QuotaService
	sendRecords interfaces.SendRecordRepository
	queue       interfaces.DispatchQueue
	log         logger.Logger
}

func NewAdmissionService(
	idempotency interfaces.IdempotencyService,
	contentGate interfaces.ContentGateService,
	quota interfaces.QuotaService,
	sendRecords interfaces.SendRecordRepository,
	queue interfaces.DispatchQueue,
	log logger.Logger,
) interfaces.AdmissionService {
	return &admissionService{
		idempotency: idempotency,
		contentGate: contentGate,
		quota:       quota,
		sendRecords: sendRecords,
		queue:       queue,
		log:         log,
	}
}

// Submit runs the full admission sequence for one standalone send:
// idempotency, content gate, quota, durable record, ledger row, enqueue.
// The ledger row is written right after the record is durable so that
// concurrent duplicates resolve to a single winner before any dispatch
// job exists. Quota is only incremented once the job is on the queue, and
// a failed enqueue deletes both the record and the ledger row again.
func (s *admissionService) Submit(ctx context.Context, tenantID string, req *dto.SendRequest) (*dto.Acceptance, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "admissionService.Submit")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	var fingerprint string
	if req.ClientKey != "" {
		fingerprint = s.idempotency.Fingerprint(req)
		resolution, err := s.idempotency.Resolve(ctx, tenantID, req.ClientKey, fingerprint)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		if !resolution.New {
			span.LogKV("event", "replay", "sendRecordId", resolution.SendRecordID)
			return replayAcceptance(resolution), nil
		}
	}

	return s.admit(ctx, tenantID, "", req.ClientKey, fingerprint, req)
}

// SubmitBatchItem admits one batch item. Batches carry no client keys, so
// the idempotency ledger is skipped entirely.
func (s *admissionService) SubmitBatchItem(ctx context.Context, tenantID, batchID string, req *dto.SendRequest) (*dto.Acceptance, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "admissionService.SubmitBatchItem")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)
	tracing.TagEntity(span, batchID)

	return s.admit(ctx, tenantID, batchID, "", "", req)
}

func (s *admissionService) admit(ctx context.Context, tenantID, batchID, clientKey, fingerprint string, req *dto.SendRequest) (*dto.Acceptance, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "admissionService.admit")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	evaluation := s.contentGate.Evaluate(ctx, req)
	if !evaluation.Valid {
		err := &apperrors.ContentRejectedError{
			Reasons:  evaluation.Errors,
			Warnings: evaluation.Warnings,
			Score:    evaluation.Score,
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	quotaStatus := s.quota.Check(ctx, tenantID)
	if !quotaStatus.Allowed {
		var err error
		switch quotaStatus.Reason {
		case dto.QuotaReasonSuspended:
			err = &apperrors.SuspendedError{}
		case dto.QuotaReasonTenantNotFound:
			err = apperrors.ErrTenantNotFound
		default:
			err = &apperrors.QuotaExceededError{
				Current:  quotaStatus.Current,
				Limit:    quotaStatus.Limit,
				ResetsAt: quotaStatus.ResetsAt,
			}
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	record := newSendRecord(tenantID, batchID, req)
	if err := s.sendRecords.Create(ctx, record); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create send record")
	}

	var warnings []string
	if quotaStatus.Decision == dto.QuotaAllowedWithWarning {
		warnings = append(warnings, quotaStatus.Reason)
	}
	warnings = append(warnings, evaluation.Warnings...)

	acceptance := &dto.Acceptance{
		SendRecordID: record.ID,
		Status:       enum.SendStatusEnqueued,
		Warnings:     warnings,
	}

	if clientKey != "" {
		if err := s.idempotency.Persist(ctx, tenantID, clientKey, fingerprint, acceptance); err != nil {
			if errors.Is(err, apperrors.ErrIdempotencyKeyTaken) {
				return s.resolveLostRace(ctx, span, tenantID, clientKey, fingerprint, record.ID)
			}
			// The ledger write failed for another reason; a missing row
			// only costs replay protection for this key.
			tracing.TraceErr(span, err)
			s.log.Errorf("failed to persist idempotency record for tenant %s key %s: %v", tenantID, clientKey, err)
		}
	}

	job := dto.DispatchJob{
		SendRecordID: record.ID,
		TenantID:     tenantID,
		BatchID:      batchID,
		RequestID:    req.RequestID,
	}
	if _, err := s.queue.Enqueue(ctx, job); err != nil {
		tracing.TraceErr(span, err)
		// Compensating delete: the record never reached the queue, so it
		// must not linger as a pending orphan, and the ledger row must
		// not pin a replay to it.
		if deleteErr := s.sendRecords.Delete(ctx, record.ID); deleteErr != nil {
			tracing.TraceErr(span, deleteErr)
			s.log.Errorf("rollback of send record %s failed after enqueue error: %v", record.ID, deleteErr)
		}
		if clientKey != "" {
			if forgetErr := s.idempotency.Forget(ctx, tenantID, clientKey); forgetErr != nil {
				tracing.TraceErr(span, forgetErr)
				s.log.Errorf("rollback of idempotency key %s failed after enqueue error: %v", clientKey, forgetErr)
			}
		}
		return nil, &apperrors.EnqueueError{Cause: err}
	}

	if err := s.sendRecords.UpdateStatus(ctx, record.ID, enum.SendStatusEnqueued); err != nil {
		// The job is on the queue; the record will catch up when the
		// outcome feed reports back. Not a caller-facing failure.
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to mark send record %s enqueued: %v", record.ID, err)
	}

	s.quota.Increment(ctx, tenantID, 1)

	return acceptance, nil
}

// resolveLostRace handles the loser side of two concurrent submissions
// with the same client key: its own record is deleted again and the
// winner's ledger row supplies the acceptance both callers end up with.
func (s *admissionService) resolveLostRace(ctx context.Context, span opentracing.Span, tenantID, clientKey, fingerprint, recordID string) (*dto.Acceptance, error) {
	span.LogKV("event", "lost idempotency race", "sendRecordId", recordID)

	if err := s.sendRecords.Delete(ctx, recordID); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("rollback of send record %s failed after losing idempotency race: %v", recordID, err)
	}

	resolution, err := s.idempotency.Resolve(ctx, tenantID, clientKey, fingerprint)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if resolution.New {
		// The winning row vanished between the insert and this read.
		err := errors.New("idempotency key raced and the winning entry is gone; retry the request")
		tracing.TraceErr(span, err)
		return nil, err
	}
	return replayAcceptance(resolution), nil
}

func replayAcceptance(resolution *dto.IdempotencyResolution) *dto.Acceptance {
	return &dto.Acceptance{
		SendRecordID: resolution.SendRecordID,
		Status:       resolution.Status,
		Warnings:     resolution.Warnings,
		Replay:       true,
	}
}

func newSendRecord(tenantID, batchID string, req *dto.SendRequest) *models.SendRecord {
	record := &models.SendRecord{
		TenantID:     tenantID,
		RequestID:    req.RequestID,
		FromAddress:  req.FromAddress,
		ToAddresses:  req.ToAddresses,
		CcAddresses:  req.CcAddresses,
		BccAddresses: req.BccAddresses,
		Subject:      req.Subject,
		BodyText:     req.BodyText,
		BodyHTML:     req.BodyHTML,
		Tags:         req.Tags,
		Status:       enum.SendStatusPending,
	}
	if batchID != "" {
		record.BatchID = utils.Ptr(batchID)
	}
	return record
}
