package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/sendgate/sendgate/internal/enum"
	"github.com/sendgate/sendgate/internal/utils"
)

// Batch tracks one bulk submission. Counters are monotonically
// non-decreasing and always satisfy processed = success + failed <= total.
type Batch struct {
	ID       string           `gorm:"column:id;type:varchar(50);primaryKey"`
	TenantID string           `gorm:"column:tenant_id;type:varchar(50);index;not null"`
	Mode     enum.BatchMode   `gorm:"column:mode;type:varchar(20);not null"`
	Status   enum.BatchStatus `gorm:"column:status;type:varchar(20);index;not null"`

	TotalCount     int `gorm:"column:total_count;not null"`
	ProcessedCount int `gorm:"column:processed_count;not null;default:0"`
	SuccessCount   int `gorm:"column:success_count;not null;default:0"`
	FailedCount    int `gorm:"column:failed_count;not null;default:0"`

	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamp"`
}

func (Batch) TableName() string {
	return "batches"
}

func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = utils.GenerateNanoIDWithPrefix("btch", 16)
	}
	b.CreatedAt = utils.Now()
	return nil
}

// Progress returns the completion percentage, rounded to the nearest int.
func (b *Batch) Progress() int {
	if b.TotalCount == 0 {
		return 0
	}
	return int(float64(b.ProcessedCount)/float64(b.TotalCount)*100 + 0.5)
}
