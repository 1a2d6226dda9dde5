package enum

type BatchMode string

const (
	BatchModeAllOrNothing BatchMode = "all_or_nothing"
	BatchModeBestEffort   BatchMode = "best_effort"
)

func (t BatchMode) String() string {
	return string(t)
}

func (t BatchMode) IsValid() bool {
	return t == BatchModeAllOrNothing || t == BatchModeBestEffort
}

type BatchStatus string

const (
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusPartial    BatchStatus = "partial"
	BatchStatusFailed     BatchStatus = "failed"
)

func (t BatchStatus) String() string {
	return string(t)
}
