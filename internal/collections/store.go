// internal/collections/store.go
package collections

import (
	"context"
	"errors"
)

// ErrNotFound is returned by stores when a single-row lookup has no match.
var ErrNotFound = errors.New("not found")

type TenantStore interface {
	ListTenants(ctx context.Context) ([]Tenant, error)
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)
	CollectionsEnabled(ctx context.Context, tenantID string) (bool, error)
	SetCollectionsEnabled(ctx context.Context, tenantID string, enabled bool) error
}

type RuleStore interface {
	ActiveRules(ctx context.Context, tenantID string, eventType EventType) ([]Rule, error)
}

type ObligationStore interface {
	PendingObligationsDueOn(ctx context.Context, tenantID string, due Date) ([]Obligation, error)
	ObligationsByIDs(ctx context.Context, tenantID string, ids []string) ([]Obligation, error)
}

type LogStore interface {
	// NotifiedObligationIDs returns the subset of ids that already have a log entry for ruleID.
	NotifiedObligationIDs(ctx context.Context, ruleID string, ids []string) (map[string]struct{}, error)
	InsertLogEntries(ctx context.Context, entries []LogEntry) error
}

type QueueStore interface {
	// InsertQueueEntry returns false when an entry with the same idempotency key already exists.
	InsertQueueEntry(ctx context.Context, entry QueueEntry) (bool, error)
}

type ChannelStore interface {
	// ChannelConfig returns ErrNotFound when the tenant has no messaging channel.
	ChannelConfig(ctx context.Context, tenantID string) (*ChannelConfig, error)
}

type TemplateLibrary interface {
	// LookupTemplate returns ErrNotFound when key is unknown.
	LookupTemplate(ctx context.Context, key string) (*Template, error)
}

// Store is everything the engine reads and writes.
type Store interface {
	TenantStore
	RuleStore
	ObligationStore
	LogStore
	QueueStore
	ChannelStore
	TemplateLibrary
}

// Transport sends a text message to a phone number.
type Transport interface {
	Send(ctx context.Context, phone, text string) error
	Name() string
}
