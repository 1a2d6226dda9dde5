package dto

import (
	"time"

	"github.com/sendgate/sendgate/internal/enum"
)

// MaxBatchSize bounds how many messages one batch may carry.
const MaxBatchSize = 1000

type BatchRequest struct {
	Mode     enum.BatchMode `json:"mode"`
	Messages []SendRequest  `json:"messages"`
}

// BatchAcceptance is returned as soon as the batch is admitted for
// asynchronous processing.
type BatchAcceptance struct {
	BatchID    string           `json:"batchId"`
	Status     enum.BatchStatus `json:"status"`
	TotalCount int              `json:"totalCount"`
}

// BatchEmail is a per-item view of a batch's outbox entries.
type BatchEmail struct {
	SendRecordID string          `json:"sendRecordId"`
	ToAddresses  []string        `json:"toAddresses"`
	Subject      string          `json:"subject"`
	Status       enum.SendStatus `json:"status"`
	Error        string          `json:"error,omitempty"`
}

type BatchStatusResponse struct {
	BatchID        string           `json:"batchId"`
	Mode           enum.BatchMode   `json:"mode"`
	Status         enum.BatchStatus `json:"status"`
	TotalCount     int              `json:"totalCount"`
	ProcessedCount int              `json:"processedCount"`
	SuccessCount   int              `json:"successCount"`
	FailedCount    int              `json:"failedCount"`
	Progress       int              `json:"progress"`
	CreatedAt      time.Time        `json:"createdAt"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
}
