package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/sendgate/sendgate/internal/enum"
	"github.com/sendgate/sendgate/internal/utils"
)

// IdempotencyRecord pins a client-supplied key to the fingerprint of the
// request it first accepted, plus the acceptance the original caller saw
// so replays return it verbatim. The (tenant_id, client_key) uniqueness
// constraint is what makes concurrent duplicate submissions resolve to a
// single winner.
type IdempotencyRecord struct {
	ID                 string          `gorm:"column:id;type:varchar(50);primaryKey"`
	TenantID           string          `gorm:"column:tenant_id;type:varchar(50);uniqueIndex:idx_tenant_client_key;not null"`
	ClientKey          string          `gorm:"column:client_key;type:varchar(255);uniqueIndex:idx_tenant_client_key;not null"`
	RequestFingerprint string          `gorm:"column:request_fingerprint;type:varchar(64);not null"`
	SendRecordID       string          `gorm:"column:send_record_id;type:varchar(50);not null"`
	AcceptedStatus     enum.SendStatus `gorm:"column:accepted_status;type:varchar(20);not null"`
	Warnings           pq.StringArray  `gorm:"column:warnings;type:text[]"`
	ExpiresAt          time.Time       `gorm:"column:expires_at;type:timestamp;index;not null"`
	CreatedAt          time.Time       `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}

func (r *IdempotencyRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateNanoIDWithPrefix("idem", 16)
	}
	r.CreatedAt = utils.Now()
	return nil
}

func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
