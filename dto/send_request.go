package dto

import (
	"time"

	"github.com/sendgate/sendgate/internal/enum"
)

// SendRequest is one outbound message as submitted by a tenant, either
// standalone or as a batch item.
type SendRequest struct {
	FromAddress  string   `json:"fromAddress"`
	ToAddresses  []string `json:"toAddresses"`
	CcAddresses  []string `json:"ccAddresses,omitempty"`
	BccAddresses []string `json:"bccAddresses,omitempty"`
	Subject      string   `json:"subject"`
	BodyText     string   `json:"bodyText,omitempty"`
	BodyHTML     string   `json:"bodyHtml,omitempty"`
	Tags         []string `json:"tags,omitempty"`

	// ClientKey scopes request deduplication to 24 hours. Optional.
	ClientKey string `json:"clientKey,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// Acceptance is the synchronous answer to a submit. Replays return the
// original acceptance verbatim; Replay is internal bookkeeping and never
// reaches the wire, so the two responses are indistinguishable.
type Acceptance struct {
	SendRecordID string          `json:"sendRecordId"`
	Status       enum.SendStatus `json:"status"`
	Replay       bool            `json:"-"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// QuotaDecision distinguishes the degraded fail-open path from a normal allow.
type QuotaDecision string

const (
	QuotaAllowed            QuotaDecision = "allowed"
	QuotaAllowedWithWarning QuotaDecision = "allowed_with_warning"
	QuotaDenied             QuotaDecision = "denied"
)

// Denial reasons surfaced on QuotaStatus.Reason.
const (
	QuotaReasonTenantNotFound = "tenant not found"
	QuotaReasonSuspended      = "suspended"
	QuotaReasonLimitReached   = "daily limit reached"
)

// QuotaStatus reports the tenant's standing against its daily limit.
type QuotaStatus struct {
	Decision QuotaDecision `json:"decision"`
	Allowed  bool          `json:"allowed"`
	Current  int64         `json:"current"`
	Limit    int64         `json:"limit"`
	ResetsAt time.Time     `json:"resetsAt"`
	Reason   string        `json:"reason,omitempty"`
}
