package dto

import "github.com/sendgate/sendgate/internal/enum"

// Event is the envelope every queue message travels in.
type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	Tenant     string          `json:"tenant"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	EventType  string          `json:"eventType"`
	Data       interface{}     `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	Timestamp   string `json:"timestamp"`
}

// DispatchJob instructs a dispatch worker to deliver one send record.
type DispatchJob struct {
	SendRecordID string `json:"sendRecordId"`
	TenantID     string `json:"tenantId"`
	BatchID      string `json:"batchId,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
}

// DispatchOutcome is reported back by dispatch workers once delivery
// succeeded or permanently failed.
type DispatchOutcome struct {
	SendRecordID    string          `json:"sendRecordId"`
	TenantID        string          `json:"tenantId"`
	Status          enum.SendStatus `json:"status"`
	PermanentBounce bool            `json:"permanentBounce,omitempty"`
	Complaint       bool            `json:"complaint,omitempty"`
	Error           string          `json:"error,omitempty"`
}
