package repository

import (
	"context"
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/models"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

type tenantRepository struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) interfaces.TenantRepository {
	return &tenantRepository{
		db: db,
	}
}

func (r *tenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	if tenant == nil {
		return ErrInvalidInput
	}

	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	result := r.db.WithContext(ctx).Create(tenant)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}
	return nil
}

func (r *tenantRepository) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, id)

	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) ListActiveUnsuspended(ctx context.Context) ([]*models.Tenant, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.ListActiveUnsuspended")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var tenants []*models.Tenant
	err := r.db.WithContext(ctx).
		Where("is_suspended = ?", false).
		Order("id asc").
		Find(&tenants).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return tenants, nil
}

func (r *tenantRepository) UpdateMetrics(ctx context.Context, id string, bounceRatePct, complaintRatePct float64, at time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.UpdateMetrics")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, id)

	err := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"bounce_rate_pct":     bounceRatePct,
			"complaint_rate_pct":  complaintRatePct,
			"last_metrics_update": at,
			"updated_at":          utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *tenantRepository) Suspend(ctx context.Context, id string, reason string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "tenantRepository.Suspend")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagTenant(span, id)
	span.LogKV("reason", reason)

	// One-way flag: never cleared here, only set.
	err := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_suspended":      true,
			"suspension_reason": reason,
			"updated_at":        utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
