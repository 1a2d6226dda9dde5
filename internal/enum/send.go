package enum

type SendStatus string

const (
	SendStatusPending  SendStatus = "pending"
	SendStatusEnqueued SendStatus = "enqueued"
	SendStatusSent     SendStatus = "sent"
	SendStatusFailed   SendStatus = "failed"
)

func (t SendStatus) String() string {
	return string(t)
}

type EntityType string

const (
	SEND EntityType = "SEND"
)

func (t EntityType) String() string {
	return string(t)
}
