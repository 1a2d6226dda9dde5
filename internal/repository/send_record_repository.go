package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/enum"
	apperrors "github.com/sendgate/sendgate/internal/errors"
	"github.com/sendgate/sendgate/internal/models"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

type sendRecordRepository struct {
	db *gorm.DB
}

func NewSendRecordRepository(db *gorm.DB) interfaces.SendRecordRepository {
	return &sendRecordRepository{
		db: db,
	}
}

func (r *sendRecordRepository) Create(ctx context.Context, record *models.SendRecord) error {
	if record == nil {
		return ErrInvalidInput
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, record.TenantID)

	result := r.db.WithContext(ctx).Create(record)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	return nil
}

func (r *sendRecordRepository) GetByID(ctx context.Context, id string) (*models.SendRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	var record models.SendRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &record, nil
}

func (r *sendRecordRepository) UpdateStatus(ctx context.Context, id string, status enum.SendStatus) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.UpdateStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)
	span.LogKV("status", status)

	err := r.db.WithContext(ctx).
		Model(&models.SendRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *sendRecordRepository) MarkOutcome(ctx context.Context, id string, status enum.SendStatus, permanentBounce, complaint bool, lastError string) error {
	if id == "" {
		return ErrInvalidInput
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.MarkOutcome")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)
	span.LogKV("status", status)

	updates := map[string]interface{}{
		"status":           status,
		"permanent_bounce": permanentBounce,
		"complaint":        complaint,
		"last_error":       lastError,
		"attempts":         gorm.Expr("attempts + 1"),
		"updated_at":       utils.Now(),
	}
	if status == enum.SendStatusSent {
		updates["sent_at"] = utils.Now()
	}

	// Terminal outcomes only land on records that already reached the
	// queue; a pending record never skips ahead.
	result := r.db.WithContext(ctx).
		Model(&models.SendRecord{}).
		Where("id = ? AND status = ?", id, enum.SendStatusEnqueued).
		Updates(updates)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrSendRecordNotFound
	}
	return nil
}

func (r *sendRecordRepository) Delete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.SendRecord{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *sendRecordRepository) DeleteByBatchID(ctx context.Context, batchID string) error {
	if batchID == "" {
		return ErrInvalidInput
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.DeleteByBatchID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, batchID)

	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&models.SendRecord{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *sendRecordRepository) ListByBatchID(ctx context.Context, batchID string) ([]*models.SendRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.ListByBatchID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, batchID)

	var records []*models.SendRecord
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return records, nil
}

func (r *sendRecordRepository) GetOutcomeStats(ctx context.Context, tenantID string, since time.Time) (*interfaces.OutcomeStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "sendRecordRepository.GetOutcomeStats")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenantID)

	var stats interfaces.OutcomeStats
	err := r.db.WithContext(ctx).
		Model(&models.SendRecord{}).
		Select(
			"COUNT(*) FILTER (WHERE status IN ?) AS total_sent, "+
				"COUNT(*) FILTER (WHERE permanent_bounce) AS permanent_bounces, "+
				"COUNT(*) FILTER (WHERE complaint) AS complaints",
			[]string{enum.SendStatusSent.String(), enum.SendStatusFailed.String()},
		).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Scan(&stats).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &stats, nil
}
