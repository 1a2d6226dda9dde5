package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/enum"
	"github.com/sendgate/sendgate/internal/models"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) interfaces.BatchRepository {
	return &batchRepository{
		db: db,
	}
}

func (r *batchRepository) Create(ctx context.Context, batch *models.Batch) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, batch.TenantID)

	result := r.db.WithContext(ctx).Create(batch)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	return nil
}

func (r *batchRepository) GetByID(ctx context.Context, id string) (*models.Batch, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	var batch models.Batch
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) UpdateProgress(ctx context.Context, id string, processed, success, failed int) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchRepository.UpdateProgress")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	err := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"processed_count": processed,
			"success_count":   success,
			"failed_count":    failed,
			"updated_at":      utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *batchRepository) Finalize(ctx context.Context, id string, status enum.BatchStatus, processed, success, failed int, completedAt time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchRepository.Finalize")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)
	span.LogKV("status", status)

	err := r.db.WithContext(ctx).
		Model(&models.Batch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"processed_count": processed,
			"success_count":   success,
			"failed_count":    failed,
			"completed_at":    completedAt,
			"updated_at":      utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *batchRepository) Delete(ctx context.Context, id string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "batchRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Batch{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
