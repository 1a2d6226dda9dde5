package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/config"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

type reputationService struct {
	cfg         *config.ReputationConfig
	tenants     interfaces.TenantRepository
	sendRecords interfaces.SendRecordRepository
	log         logger.Logger
}

func NewReputationService(
	cfg *config.ReputationConfig,
	tenants interfaces.TenantRepository,
	sendRecords interfaces.SendRecordRepository,
	log logger.Logger,
) interfaces.ReputationService {
	return &reputationService{
		cfg:         cfg,
		tenants:     tenants,
		sendRecords: sendRecords,
		log:         log,
	}
}

// CalculateRates aggregates delivery outcomes over the trailing window.
// Both rates are zero when nothing was sent.
func (s *reputationService) CalculateRates(ctx context.Context, tenantID string) (*dto.ReputationRates, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "reputationService.CalculateRates")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	since := utils.Now().AddDate(0, 0, -s.cfg.WindowDays)
	stats, err := s.sendRecords.GetOutcomeStats(ctx, tenantID, since)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to aggregate outcome stats")
	}

	rates := &dto.ReputationRates{
		TotalSent:       stats.TotalSent,
		TotalBounces:    stats.PermanentBounces,
		TotalComplaints: stats.Complaints,
	}
	if stats.TotalSent > 0 {
		rates.BounceRate = float64(stats.PermanentBounces) / float64(stats.TotalSent) * 100
		rates.ComplaintRate = float64(stats.Complaints) / float64(stats.TotalSent) * 100
	}
	return rates, nil
}

// CheckAndSuspend recomputes the tenant's rates, always persists them to
// the cached fields, then suspends when a threshold is breached. The flag
// is one-way: an already-suspended tenant still gets fresh metrics but is
// never unsuspended here.
func (s *reputationService) CheckAndSuspend(ctx context.Context, tenantID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "reputationService.CheckAndSuspend")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagTenant(span, tenantID)

	rates, err := s.CalculateRates(ctx, tenantID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if err := s.tenants.UpdateMetrics(ctx, tenantID, rates.BounceRate, rates.ComplaintRate, utils.Now()); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to persist reputation metrics")
	}

	var reason string
	switch {
	case rates.BounceRate > s.cfg.BounceRateThresholdPct:
		reason = fmt.Sprintf("High bounce rate: %.2f%% (threshold: %g%%)", rates.BounceRate, s.cfg.BounceRateThresholdPct)
	case rates.ComplaintRate > s.cfg.ComplaintRateThresholdPct:
		reason = fmt.Sprintf("High complaint rate: %.2f%% (threshold: %g%%)", rates.ComplaintRate, s.cfg.ComplaintRateThresholdPct)
	default:
		return nil
	}

	span.LogKV("event", "suspending", "reason", reason)
	s.log.Warnf("suspending tenant %s: %s", tenantID, reason)
	if err := s.tenants.Suspend(ctx, tenantID, reason); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to suspend tenant")
	}
	return nil
}

// MonitorAllCompanies sweeps every active, not-yet-suspended tenant
// sequentially. Tenants are isolated from each other: one failing check is
// logged and counted, never aborting the sweep.
func (s *reputationService) MonitorAllCompanies(ctx context.Context) (*dto.SweepReport, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "reputationService.MonitorAllCompanies")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	tenants, err := s.tenants.ListActiveUnsuspended(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to list tenants for reputation sweep")
	}

	report := &dto.SweepReport{}
	timeout := time.Duration(s.cfg.TenantTimeoutSeconds) * time.Second

	for _, tenant := range tenants {
		report.Checked++
		if err := s.checkTenantWithTimeout(ctx, tenant.ID, timeout); err != nil {
			report.Failed++
			s.log.Errorf("reputation check for tenant %s failed: %v", tenant.ID, err)
			continue
		}
		refreshed, err := s.tenants.GetByID(ctx, tenant.ID)
		if err == nil && refreshed != nil && refreshed.IsSuspended {
			report.Suspended++
		}
	}

	span.LogKV("checked", report.Checked, "suspended", report.Suspended, "failed", report.Failed)
	s.log.Infof("reputation sweep done: checked=%d suspended=%d failed=%d", report.Checked, report.Suspended, report.Failed)
	return report, nil
}

// checkTenantWithTimeout bounds one tenant's check so a stuck store call
// cannot stall the whole sweep.
func (s *reputationService) checkTenantWithTimeout(ctx context.Context, tenantID string, timeout time.Duration) error {
	tenantCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.CheckAndSuspend(tenantCtx, tenantID)
}
