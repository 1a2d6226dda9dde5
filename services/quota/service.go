package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/redis/go-redis/v9"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

const (
	// counterTTL keeps a day's key alive just long enough; it is refreshed
	// on every increment so a stale key cannot outlive its day.
	counterTTL = 24 * time.Hour

	keyFormat = "quota:%s:%s"
)

type quotaService struct {
	redis   *redis.Client
	tenants interfaces.TenantRepository
	log     logger.Logger
}

func NewQuotaService(redisClient *redis.Client, tenants interfaces.TenantRepository, log logger.Logger) interfaces.QuotaService {
	return &quotaService{
		redis:   redisClient,
		tenants: tenants,
		log:     log,
	}
}

func counterKey(tenantID string, at time.Time) string {
	return fmt.Sprintf(keyFormat, tenantID, utils.UTCDateKey(at))
}

// Check reads today's counter for the tenant. The counter store failing is
// never a reason to block a send: those paths return an explicit
// allowed-with-warning decision instead of an error.
func (s *quotaService) Check(ctx context.Context, tenantID string) *dto.QuotaStatus {
	span, ctx := opentracing.StartSpanFromContext(ctx, "quotaService.Check")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	now := utils.Now()
	resetsAt := utils.NextUTCMidnight(now)

	tenant, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		// Record store outage: availability wins over strict enforcement.
		tracing.TraceErr(span, err)
		s.log.Warnf("quota check for tenant %s degraded, tenant lookup failed: %v", tenantID, err)
		return &dto.QuotaStatus{
			Decision: dto.QuotaAllowedWithWarning,
			Allowed:  true,
			ResetsAt: resetsAt,
			Reason:   fmt.Sprintf("tenant lookup failed: %v", err),
		}
	}
	if tenant == nil {
		return &dto.QuotaStatus{
			Decision: dto.QuotaDenied,
			Allowed:  false,
			ResetsAt: resetsAt,
			Reason:   dto.QuotaReasonTenantNotFound,
		}
	}
	if tenant.IsSuspended {
		return &dto.QuotaStatus{
			Decision: dto.QuotaDenied,
			Allowed:  false,
			Limit:    tenant.DailyLimit,
			ResetsAt: resetsAt,
			Reason:   dto.QuotaReasonSuspended,
		}
	}

	current, err := s.redis.Get(ctx, counterKey(tenantID, now)).Int64()
	if err != nil && err != redis.Nil {
		tracing.TraceErr(span, err)
		s.log.Warnf("quota check for tenant %s degraded, counter store unavailable: %v", tenantID, err)
		return &dto.QuotaStatus{
			Decision: dto.QuotaAllowedWithWarning,
			Allowed:  true,
			Limit:    tenant.DailyLimit,
			ResetsAt: resetsAt,
			Reason:   fmt.Sprintf("counter store unavailable: %v", err),
		}
	}

	if current >= tenant.DailyLimit {
		return &dto.QuotaStatus{
			Decision: dto.QuotaDenied,
			Allowed:  false,
			Current:  current,
			Limit:    tenant.DailyLimit,
			ResetsAt: resetsAt,
			Reason:   dto.QuotaReasonLimitReached,
		}
	}

	return &dto.QuotaStatus{
		Decision: dto.QuotaAllowed,
		Allowed:  true,
		Current:  current,
		Limit:    tenant.DailyLimit,
		ResetsAt: resetsAt,
	}
}

// Increment bumps today's counter. It runs only after a send was durably
// enqueued, so failures here must not surface: undercounting is preferred
// over blocking work that is already on the queue.
func (s *quotaService) Increment(ctx context.Context, tenantID string, n int64) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "quotaService.Increment")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	key := counterKey(tenantID, utils.Now())

	pipe := s.redis.TxPipeline()
	pipe.IncrBy(ctx, key, n)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		tracing.TraceErr(span, err)
		s.log.Warnf("quota increment for tenant %s failed: %v", tenantID, err)
	}
}
