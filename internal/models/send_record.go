package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/sendgate/sendgate/internal/enum"
	"github.com/sendgate/sendgate/internal/utils"
)

// SendRecord is the outbox entry for one accepted send. It is created in
// pending state by the admission pipeline, moved to enqueued once the
// dispatch job is on the queue, and finalized to sent/failed by the
// outcome feed from the dispatch workers.
type SendRecord struct {
	ID        string  `gorm:"column:id;type:varchar(50);primaryKey"`
	TenantID  string  `gorm:"column:tenant_id;type:varchar(50);index;not null"`
	BatchID   *string `gorm:"column:batch_id;type:varchar(50);index"`
	RequestID string  `gorm:"column:request_id;type:varchar(100);index"`

	FromAddress  string         `gorm:"column:from_address;type:varchar(255);not null"`
	ToAddresses  pq.StringArray `gorm:"column:to_addresses;type:text[]"`
	CcAddresses  pq.StringArray `gorm:"column:cc_addresses;type:text[]"`
	BccAddresses pq.StringArray `gorm:"column:bcc_addresses;type:text[]"`
	Subject      string         `gorm:"column:subject;type:varchar(1000)"`
	BodyText     string         `gorm:"column:body_text;type:text"`
	BodyHTML     string         `gorm:"column:body_html;type:text"`
	Tags         pq.StringArray `gorm:"column:tags;type:text[]"`

	Status   enum.SendStatus `gorm:"column:status;type:varchar(20);index;not null"`
	Attempts int             `gorm:"column:attempts;not null;default:0"`

	// Outcome markers reported by the dispatch workers; the reputation
	// monitor aggregates these over a trailing window.
	PermanentBounce bool       `gorm:"column:permanent_bounce;not null;default:false"`
	Complaint       bool       `gorm:"column:complaint;not null;default:false"`
	LastError       string     `gorm:"column:last_error;type:text"`
	SentAt          *time.Time `gorm:"column:sent_at;type:timestamp;index"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (SendRecord) TableName() string {
	return "send_records"
}

func (r *SendRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = utils.GenerateNanoIDWithPrefix("send", 24)
	}
	r.CreatedAt = utils.Now()
	return nil
}
