// internal/collections/models.go
package collections

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType selects when a reminder rule fires.
type EventType string

const (
	// EventDueDate rules are evaluated by the scheduled sweep relative to an installment's due date.
	EventDueDate EventType = "DUE_DATE"
	// EventCreation rules fire right after installments are created.
	EventCreation EventType = "CREATION"
)

type ObligationStatus string

const (
	StatusPending   ObligationStatus = "pending"
	StatusPaid      ObligationStatus = "paid"
	StatusCancelled ObligationStatus = "cancelled"
)

type LogStatus string

const (
	LogSuccess LogStatus = "SUCCESS"
	LogFailure LogStatus = "FAILURE"
)

const QueueStatusPending = "PENDING"

// Tenant is a school account. Modules is parsed from the enabled_modules blob.
type Tenant struct {
	ID      string
	Name    string
	Active  bool
	Modules map[string]bool
}

// CollectionsActive reports whether the tenant is active and subscribed to the collections module.
// The operational toggle is stored separately and checked by the orchestrator.
func (t Tenant) CollectionsActive(moduleKey string) bool {
	return t.Active && t.Modules[moduleKey]
}

// ChannelConfig is the tenant's outbound messaging configuration.
type ChannelConfig struct {
	TenantID string `json:"tenantId"`
	Provider string `json:"provider"`
	Active   bool   `json:"active"`
	SenderID string `json:"senderId,omitempty"`
}

// Rule is a tenant-scoped reminder step.
type Rule struct {
	ID               string
	TenantID         string
	Name             string
	EventType        EventType
	DayOffset        int
	TemplateKey      string
	CustomMessage    string
	UseCustomMessage bool
	Active           bool
}

// TargetDate is the due date a DUE_DATE rule selects on a sweep run for ref.
// A positive offset means "overdue by N days".
func (r Rule) TargetDate(ref Date) Date {
	return ref.AddDays(-r.DayOffset)
}

// Debtor holds the contact details joined from the enrollment.
type Debtor struct {
	StudentName   string
	GuardianName  string
	GuardianPhone string
}

// Obligation is a single installment.
type Obligation struct {
	ID           string
	TenantID     string
	EnrollmentID string
	Value        decimal.Decimal
	DueDate      Date
	Status       ObligationStatus
	PaymentLink  string
	Debtor       Debtor
}

// Template is a message template from the template library.
type Template struct {
	Key   string
	Title string
	Body  string
}

// LogMetadata is stored as JSON on every notification log row.
type LogMetadata struct {
	Message   string `json:"message"`
	GroupSize int    `json:"groupSize"`
	Channel   string `json:"channel,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}

// LogEntry marks (ObligationID, RuleID) as notified.
type LogEntry struct {
	ID           string
	TenantID     string
	ObligationID string
	RuleID       string
	Status       LogStatus
	Metadata     LogMetadata
	CreatedAt    time.Time
}

// Params is the placeholder bag shared by the renderer and the queue payload.
type Params struct {
	StudentName  string `json:"studentName"`
	GuardianName string `json:"guardianName"`
	Amount       string `json:"amount"`
	DueDate      string `json:"dueDate"`
	PaymentLink  string `json:"paymentLink"`
	Count        int    `json:"count"`
}

// QueuePayload carries everything the downstream worker needs to render, send and write
// its own log rows for every member obligation.
type QueuePayload struct {
	TenantID       string    `json:"tenantId"`
	RecipientPhone string    `json:"recipientPhone"`
	RuleID         string    `json:"ruleId"`
	EventType      EventType `json:"eventType"`
	TemplateKey    string    `json:"templateKey"`
	CustomMessage  string    `json:"customMessage,omitempty"`
	Params         Params    `json:"params"`
	ObligationIDs  []string  `json:"obligationIds"`
	ReferenceDate  string    `json:"referenceDate"`
}

// QueueEntry is a durable notification job.
type QueueEntry struct {
	ID             string
	TenantID       string
	Payload        QueuePayload
	Status         string
	Priority       int
	IdempotencyKey string
	CreatedAt      time.Time
}

// DebtorGroup is every obligation notified together in one message.
type DebtorGroup struct {
	DebtorID string
	Debtor   Debtor
	Members  []Obligation
	Total    decimal.Decimal
	DueDate  Date
}

func (g DebtorGroup) Count() int {
	return len(g.Members)
}

// ObligationIDs returns member ids in member order.
func (g DebtorGroup) ObligationIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// PaymentLink returns the first non-empty member link.
func (g DebtorGroup) PaymentLink() string {
	for _, m := range g.Members {
		if m.PaymentLink != "" {
			return m.PaymentLink
		}
	}
	return ""
}
