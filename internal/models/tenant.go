package models

import (
	"time"
)

// Tenant holds the per-customer admission state: the daily quota limit,
// the one-way suspension flag and the cached reputation rates written by
// the reputation monitor. Tenants are provisioned externally; this service
// only reads the limit and mutates suspension/metrics fields.
type Tenant struct {
	ID               string  `gorm:"column:id;type:varchar(50);primaryKey"`
	Name             string  `gorm:"column:name;type:varchar(255)"`
	DailyLimit       int64   `gorm:"column:daily_limit;not null;default:0"`
	IsSuspended      bool    `gorm:"column:is_suspended;not null;default:false"`
	SuspensionReason *string `gorm:"column:suspension_reason;type:text"`

	// Cached reputation metrics, refreshed on every sweep.
	BounceRatePct     float64    `gorm:"column:bounce_rate_pct;not null;default:0"`
	ComplaintRatePct  float64    `gorm:"column:complaint_rate_pct;not null;default:0"`
	LastMetricsUpdate *time.Time `gorm:"column:last_metrics_update;type:timestamp"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Tenant) TableName() string {
	return "tenants"
}
