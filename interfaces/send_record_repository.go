package interfaces

import (
	"context"
	"time"

	"github.com/sendgate/sendgate/internal/enum"
	"github.com/sendgate/sendgate/internal/models"
)

// OutcomeStats is the aggregate the reputation monitor reads; counts are
// scoped to one tenant over one trailing window.
type OutcomeStats struct {
	TotalSent        int64
	PermanentBounces int64
	Complaints       int64
}

type SendRecordRepository interface {
	Create(ctx context.Context, record *models.SendRecord) error
	GetByID(ctx context.Context, id string) (*models.SendRecord, error)
	UpdateStatus(ctx context.Context, id string, status enum.SendStatus) error
	// MarkOutcome finalizes a record from the dispatch outcome feed.
	MarkOutcome(ctx context.Context, id string, status enum.SendStatus, permanentBounce, complaint bool, lastError string) error
	Delete(ctx context.Context, id string) error
	// DeleteByBatchID removes every record of a batch; used by the
	// all-or-nothing rollback.
	DeleteByBatchID(ctx context.Context, batchID string) error
	ListByBatchID(ctx context.Context, batchID string) ([]*models.SendRecord, error)
	// GetOutcomeStats aggregates delivery outcomes for records created
	// since the given instant.
	GetOutcomeStats(ctx context.Context, tenantID string, since time.Time) (*OutcomeStats, error)
}
