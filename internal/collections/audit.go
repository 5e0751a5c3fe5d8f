// internal/collections/audit.go
package collections

import (
	"context"
	"time"
)

// Outcome is the result of dispatching one debtor group.
type Outcome string

const (
	OutcomeSent      Outcome = "sent"
	OutcomeQueued    Outcome = "queued"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Dispatch paths.
const (
	PathDirect = "direct"
	PathQueue  = "queue"
)

// Skip reasons.
const (
	SkipNoChannel       = "no_channel"
	SkipChannelInactive = "channel_inactive"
	SkipNoContact       = "no_contact"
)

// DispatchRecord is one audit document per dispatch attempt.
type DispatchRecord struct {
	RunID         string    `json:"runId"`
	Trigger       string    `json:"trigger"`
	TenantID      string    `json:"tenantId"`
	RuleID        string    `json:"ruleId"`
	EventType     EventType `json:"eventType"`
	DebtorID      string    `json:"debtorId"`
	ObligationIDs []string  `json:"obligationIds"`
	Path          string    `json:"path"`
	Outcome       Outcome   `json:"outcome"`
	Reason        string    `json:"reason,omitempty"`
	ErrorCode     string    `json:"errorCode,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	ReferenceDate string    `json:"referenceDate"`
	Timestamp     time.Time `json:"timestamp"`
}

// AuditSink receives a record for every dispatch attempt. Sink errors never fail a dispatch.
type AuditSink interface {
	Record(ctx context.Context, rec DispatchRecord) error
}

// NopAuditSink discards records.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, DispatchRecord) error { return nil }
