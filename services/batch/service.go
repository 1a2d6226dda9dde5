package batch

import (
	"context"
	"fmt"

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

// checkpointInterval bounds how stale a mid-flight status query can be.
const checkpointInterval = 100

type batchService struct {
	admission   interfaces.AdmissionService
	batches     interfaces.BatchRepository
	sendRecords interfaces.SendRecordRepository
	log         logger.Logger
}

func NewBatchService(
	admission interfaces.AdmissionService,
	batches interfaces.BatchRepository,
	sendRecords interfaces.SendRecordRepository,
	log logger.Logger,
) interfaces.BatchService {
	return &batchService{
		admission:   admission,
		batches:     batches,
		sendRecords: sendRecords,
		log:         log,
	}
}

// CreateBatch admits a batch for asynchronous processing and returns as
// soon as the batch row exists. All-or-nothing batches get a full
// side-effect-free validation pass first, so a structurally broken batch
// is rejected before anything is persisted.
func (s *batchService) CreateBatch(ctx context.Context, tenantID string, req *dto.BatchRequest) (*dto.BatchAcceptance, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchService.CreateBatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	if !req.Mode.IsValid() {
		err := apperrors.NewBatchValidationError([]string{fmt.Sprintf("unknown batch mode %q", req.Mode)})
		tracing.TraceErr(span, err)
		return nil, err
	}
	if len(req.Messages) == 0 {
		tracing.TraceErr(span, apperrors.ErrBatchEmpty)
		return nil, apperrors.ErrBatchEmpty
	}
	if len(req.Messages) > dto.MaxBatchSize {
		tracing.TraceErr(span, apperrors.ErrBatchTooLarge)
		return nil, apperrors.ErrBatchTooLarge
	}

	if req.Mode == enum.BatchModeAllOrNothing {
		var reasons []string
		for i := range req.Messages {
			for _, reason := range validateItem(&req.Messages[i]) {
				reasons = append(reasons, fmt.Sprintf("item %d: %s", i+1, reason))
			}
		}
		if len(reasons) > 0 {
			err := apperrors.NewBatchValidationError(reasons)
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	batch := &models.Batch{
		TenantID:   tenantID,
		Mode:       req.Mode,
		Status:     enum.BatchStatusProcessing,
		TotalCount: len(req.Messages),
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create batch")
	}

	// Processing is detached from the request: the caller gets the batch
	// id back immediately and polls for progress.
	go s.processBatch(batch.ID, tenantID, req.Mode, req.Messages)

	return &dto.BatchAcceptance{
		BatchID:    batch.ID,
		Status:     batch.Status,
		TotalCount: batch.TotalCount,
	}, nil
}

func (s *batchService) processBatch(batchID, tenantID string, mode enum.BatchMode, messages []dto.SendRequest) {
	span, ctx := opentracing.StartSpanFromContext(context.Background(), "batchService.processBatch")
	defer span.Finish()
	tracing.TagTenant(span, tenantID)
	tracing.TagEntity(span, batchID)
	defer func() {
		if r := recover(); r != nil {
			tracing.TraceErr(span, fmt.Errorf("batch processing panic: %v", r))
			s.log.Errorf("batch %s processing panicked: %v", batchID, r)
		}
	}()

	var processed, success, failed int

	for i := range messages {
		var itemErr error
		if reasons := validateItem(&messages[i]); len(reasons) > 0 {
			itemErr = apperrors.NewBatchValidationError(reasons)
		} else {
			_, itemErr = s.admission.SubmitBatchItem(ctx, tenantID, batchID, &messages[i])
		}

		if itemErr != nil {
			if mode == enum.BatchModeAllOrNothing {
				s.rollback(ctx, batchID, i+1, itemErr)
				return
			}
			s.log.Warnf("batch %s item %d failed: %v", batchID, i+1, itemErr)
			failed++
		} else {
			success++
		}
		processed++

		if processed%checkpointInterval == 0 {
			if err := s.batches.UpdateProgress(ctx, batchID, processed, success, failed); err != nil {
				tracing.TraceErr(span, err)
				s.log.Errorf("failed to checkpoint batch %s progress: %v", batchID, err)
			}
		}
	}

	status := enum.BatchStatusCompleted
	switch {
	case failed == len(messages):
		status = enum.BatchStatusFailed
	case failed > 0:
		status = enum.BatchStatusPartial
	}

	if err := s.batches.Finalize(ctx, batchID, status, processed, success, failed, utils.Now()); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to finalize batch %s: %v", batchID, err)
	}
}

// rollback undoes an all-or-nothing batch after an item failure: every
// record created so far is removed and the batch row itself disappears,
// as if the batch had never been accepted.
func (s *batchService) rollback(ctx context.Context, batchID string, failedItem int, cause error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchService.rollback")
	defer span.Finish()
	tracing.TagEntity(span, batchID)
	tracing.TraceErr(span, cause)

	s.log.Warnf("rolling back all-or-nothing batch %s, item %d failed: %v", batchID, failedItem, cause)

	if err := s.sendRecords.DeleteByBatchID(ctx, batchID); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to delete send records of batch %s: %v", batchID, err)
	}
	if err := s.batches.Delete(ctx, batchID); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to delete batch %s: %v", batchID, err)
	}
}

func (s *batchService) GetBatchStatus(ctx context.Context, tenantID, batchID string) (*dto.BatchStatusResponse, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchService.GetBatchStatus")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)
	tracing.TagEntity(span, batchID)

	batch, err := s.loadTenantBatch(ctx, span, tenantID, batchID)
	if err != nil {
		return nil, err
	}

	return &dto.BatchStatusResponse{
		BatchID:        batch.ID,
		Mode:           batch.Mode,
		Status:         batch.Status,
		TotalCount:     batch.TotalCount,
		ProcessedCount: batch.ProcessedCount,
		SuccessCount:   batch.SuccessCount,
		FailedCount:    batch.FailedCount,
		Progress:       batch.Progress(),
		CreatedAt:      batch.CreatedAt,
		CompletedAt:    batch.CompletedAt,
	}, nil
}

func (s *batchService) GetBatchEmails(ctx context.Context, tenantID, batchID string) ([]*dto.BatchEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchService.GetBatchEmails")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)
	tracing.TagEntity(span, batchID)

	if _, err := s.loadTenantBatch(ctx, span, tenantID, batchID); err != nil {
		return nil, err
	}

	records, err := s.sendRecords.ListByBatchID(ctx, batchID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list batch send records")
	}

	emails := make([]*dto.BatchEmail, 0, len(records))
	for _, record := range records {
		emails = append(emails, &dto.BatchEmail{
			SendRecordID: record.ID,
			ToAddresses:  record.ToAddresses,
			Subject:      record.Subject,
			Status:       record.Status,
			Error:        record.LastError,
		})
	}
	return emails, nil
}

// loadTenantBatch fetches a batch and enforces tenant scoping: a batch
// belonging to another tenant is indistinguishable from a missing one.
func (s *batchService) loadTenantBatch(ctx context.Context, span opentracing.Span, tenantID, batchID string) (*models.Batch, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to load batch")
	}
	if batch == nil || batch.TenantID != tenantID {
		return nil, apperrors.ErrBatchNotFound
	}
	return batch, nil
}
