package interfaces

import (
	"context"
	"time"

	"github.com/sendgate/sendgate/internal/enum"
	"github.com/sendgate/sendgate/internal/models"
)

type BatchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id string) (*models.Batch, error)
	// UpdateProgress checkpoints the monotonically increasing counters.
	UpdateProgress(ctx context.Context, id string, processed, success, failed int) error
	// Finalize sets the terminal status together with the final counters.
	Finalize(ctx context.Context, id string, status enum.BatchStatus, processed, success, failed int, completedAt time.Time) error
	Delete(ctx context.Context, id string) error
}
