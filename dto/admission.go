package dto

import "github.com/sendgate/sendgate/internal/enum"

// IdempotencyResolution is the outcome of checking a client key before
// admission. New means no entry exists; otherwise the remaining fields
// replay the acceptance the original caller received. Conflicts surface
// as errors.
type IdempotencyResolution struct {
	New          bool
	SendRecordID string
	Status       enum.SendStatus
	Warnings     []string
}

// ContentEvaluation is the content gate's verdict on one message.
type ContentEvaluation struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Score    int      `json:"score"`
}

// ReputationRates aggregates delivery outcomes over the trailing window.
type ReputationRates struct {
	TotalSent       int64   `json:"totalSent"`
	TotalBounces    int64   `json:"totalBounces"`
	TotalComplaints int64   `json:"totalComplaints"`
	BounceRate      float64 `json:"bounceRate"`
	ComplaintRate   float64 `json:"complaintRate"`
}

// SweepReport summarizes one reputation monitoring pass.
type SweepReport struct {
	Checked   int `json:"checked"`
	Suspended int `json:"suspended"`
	Failed    int `json:"failed"`
}
