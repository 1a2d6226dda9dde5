package quota

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/models"
)

type fakeTenantRepo struct {
	tenants map[string]*models.Tenant
	err     error
}

func (f *fakeTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	f.tenants[tenant.ID] = tenant
	return nil
}

func (f *fakeTenantRepo) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tenants[id], nil
}

func (f *fakeTenantRepo) ListActiveUnsuspended(ctx context.Context) ([]*models.Tenant, error) {
	return nil, nil
}

func (f *fakeTenantRepo) UpdateMetrics(ctx context.Context, id string, bounceRatePct, complaintRatePct float64, at time.Time) error {
	return nil
}

func (f *fakeTenantRepo) Suspend(ctx context.Context, id string, reason string) error {
	return nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func setupQuotaTest(t *testing.T) (*miniredis.Miniredis, *redis.Client, *fakeTenantRepo) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { client.Close() })

	repo := &fakeTenantRepo{tenants: map[string]*models.Tenant{}}
	return mr, client, repo
}

func TestCheck_Boundary(t *testing.T) {
	_, client, repo := setupQuotaTest(t)
	repo.tenants["tnt_1"] = &models.Tenant{ID: "tnt_1", DailyLimit: 1000}

	svc := NewQuotaService(client, repo, getLogger())
	ctx := context.Background()

	// Seed the counter one below the limit.
	svc.Increment(ctx, "tnt_1", 999)

	status := svc.Check(ctx, "tnt_1")
	assert.True(t, status.Allowed)
	assert.Equal(t, dto.QuotaAllowed, status.Decision)
	assert.Equal(t, int64(999), status.Current)
	assert.Equal(t, int64(1000), status.Limit)

	svc.Increment(ctx, "tnt_1", 1)

	status = svc.Check(ctx, "tnt_1")
	assert.False(t, status.Allowed)
	assert.Equal(t, dto.QuotaDenied, status.Decision)
	assert.Equal(t, int64(1000), status.Current)
	assert.Equal(t, dto.QuotaReasonLimitReached, status.Reason)
}

func TestCheck_ResetsAtNextUTCMidnight(t *testing.T) {
	_, client, repo := setupQuotaTest(t)
	repo.tenants["tnt_1"] = &models.Tenant{ID: "tnt_1", DailyLimit: 10}

	svc := NewQuotaService(client, repo, getLogger())

	status := svc.Check(context.Background(), "tnt_1")
	assert.Equal(t, time.UTC, status.ResetsAt.Location())
	assert.Equal(t, 0, status.ResetsAt.Hour())
	assert.Equal(t, 0, status.ResetsAt.Minute())
	assert.True(t, status.ResetsAt.After(time.Now().UTC()))
}

func TestCheck_TenantNotFound(t *testing.T) {
	_, client, repo := setupQuotaTest(t)

	svc := NewQuotaService(client, repo, getLogger())

	status := svc.Check(context.Background(), "tnt_missing")
	assert.False(t, status.Allowed)
	assert.Equal(t, dto.QuotaReasonTenantNotFound, status.Reason)
}

func TestCheck_SuspendedTenant(t *testing.T) {
	_, client, repo := setupQuotaTest(t)
	repo.tenants["tnt_1"] = &models.Tenant{ID: "tnt_1", DailyLimit: 1000, IsSuspended: true}

	svc := NewQuotaService(client, repo, getLogger())

	// Suspension wins regardless of the counter value.
	status := svc.Check(context.Background(), "tnt_1")
	assert.False(t, status.Allowed)
	assert.Equal(t, dto.QuotaReasonSuspended, status.Reason)
}

func TestCheck_FailsOpenOnCounterStoreOutage(t *testing.T) {
	mr, client, repo := setupQuotaTest(t)
	repo.tenants["tnt_1"] = &models.Tenant{ID: "tnt_1", DailyLimit: 1000}

	svc := NewQuotaService(client, repo, getLogger())

	mr.Close()

	status := svc.Check(context.Background(), "tnt_1")
	assert.True(t, status.Allowed)
	assert.Equal(t, dto.QuotaAllowedWithWarning, status.Decision)
	assert.NotEmpty(t, status.Reason)
}

func TestIncrement_RefreshesExpiry(t *testing.T) {
	mr, client, repo := setupQuotaTest(t)
	repo.tenants["tnt_1"] = &models.Tenant{ID: "tnt_1", DailyLimit: 1000}

	svc := NewQuotaService(client, repo, getLogger())
	ctx := context.Background()

	svc.Increment(ctx, "tnt_1", 1)

	key := counterKey("tnt_1", time.Now().UTC())
	ttl := mr.TTL(key)
	assert.True(t, ttl > 0 && ttl <= 24*time.Hour)

	// A later increment refreshes the expiry rather than letting it decay.
	mr.FastForward(12 * time.Hour)
	svc.Increment(ctx, "tnt_1", 1)
	assert.Equal(t, 24*time.Hour, mr.TTL(key))
}

func TestIncrement_SwallowsStoreFailure(t *testing.T) {
	mr, client, repo := setupQuotaTest(t)
	repo.tenants["tnt_1"] = &models.Tenant{ID: "tnt_1", DailyLimit: 1000}

	svc := NewQuotaService(client, repo, getLogger())

	mr.Close()

	// Must not panic or surface an error.
	svc.Increment(context.Background(), "tnt_1", 1)
}
