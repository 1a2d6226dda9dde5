package repository

import (
	"context"
	"errors"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sendgate/sendgate/interfaces"
	apperrors "github.com/sendgate/sendgate/internal/errors"
	"github.com/sendgate/sendgate/internal/models"
	"github.com/sendgate/sendgate/internal/tracing"
)

type idempotencyRepository struct {
	db *gorm.DB
}

func NewIdempotencyRepository(db *gorm.DB) interfaces.IdempotencyRepository {
	return &idempotencyRepository{
		db: db,
	}
}

func (r *idempotencyRepository) GetByKey(ctx context.Context, tenantID, clientKey string) (*models.IdempotencyRecord, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "idempotencyRepository.GetByKey")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenantID)

	var record models.IdempotencyRecord
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND client_key = ?", tenantID, clientKey).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &record, nil
}

func (r *idempotencyRepository) Create(ctx context.Context, record *models.IdempotencyRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "idempotencyRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, record.TenantID)

	// The (tenant_id, client_key) unique index makes concurrent writers
	// resolve to one winner. Losers get ErrIdempotencyKeyTaken and read
	// the winner's row instead.
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "client_key"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrIdempotencyKeyTaken
	}
	return nil
}

func (r *idempotencyRepository) Delete(ctx context.Context, tenantID, clientKey string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "idempotencyRepository.Delete")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, tenantID)

	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND client_key = ?", tenantID, clientKey).
		Delete(&models.IdempotencyRecord{}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
