package interfaces

import (
	"context"
	"time"

	"github.com/sendgate/sendgate/internal/models"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	// ListActiveUnsuspended returns the tenants eligible for a reputation sweep.
	ListActiveUnsuspended(ctx context.Context) ([]*models.Tenant, error)
	// UpdateMetrics refreshes the cached reputation rates, never touching
	// the suspension flag.
	UpdateMetrics(ctx context.Context, id string, bounceRatePct, complaintRatePct float64, at time.Time) error
	// Suspend sets the one-way suspension flag with a reason. Idempotent.
	Suspend(ctx context.Context, id string, reason string) error
}
