package interfaces

import (
	"context"

	"github.com/sendgate/sendgate/internal/models"
)

type IdempotencyRepository interface {
	// GetByKey returns nil when no record exists for (tenantID, clientKey).
	GetByKey(ctx context.Context, tenantID, clientKey string) (*models.IdempotencyRecord, error)
	Create(ctx context.Context, record *models.IdempotencyRecord) error
	Delete(ctx context.Context, tenantID, clientKey string) error
}
