package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validPayload() QueuePayload {
	return QueuePayload{
		TenantID:       "t1",
		RecipientPhone: "5511987654321",
		RuleID:         "r1",
		EventType:      EventDueDate,
		Params:         Params{Amount: "R$ 10,00", DueDate: "01/01/2026", Count: 1},
		ObligationIDs:  []string{"o1"},
		ReferenceDate:  "2026-01-04",
	}
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*QueuePayload)
		wantErr bool
	}{
		{"valid", func(*QueuePayload) {}, false},
		{"phone too long", func(p *QueuePayload) { p.RecipientPhone = "5511987654321000" }, true},
		{"phone with formatting", func(p *QueuePayload) { p.RecipientPhone = "+55 11 98765-4321" }, true},
		{"no obligations", func(p *QueuePayload) { p.ObligationIDs = []string{} }, true},
		{"zero count", func(p *QueuePayload) { p.Params.Count = 0 }, true},
		{"unknown event", func(p *QueuePayload) { p.EventType = "WEEKLY" }, true},
		{"empty tenant", func(p *QueuePayload) { p.TenantID = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPayload()
			tt.mutate(&p)
			err := ValidatePayload(p)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIdempotencyKey(t *testing.T) {
	a := IdempotencyKey("t1", "r1", "2026-01-04", []string{"o2", "o1"})
	b := IdempotencyKey("t1", "r1", "2026-01-04", []string{"o1", "o2"})
	assert.Equal(t, a, b, "member order must not matter")
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, IdempotencyKey("t1", "r1", "2026-01-05", []string{"o1", "o2"}))
	assert.NotEqual(t, a, IdempotencyKey("t1", "r2", "2026-01-04", []string{"o1", "o2"}))
	assert.NotEqual(t, a, IdempotencyKey("t1", "r1", "2026-01-04", []string{"o1"}))
}

func TestQueueKey(t *testing.T) {
	dueDate := Rule{ID: "r1", EventType: EventDueDate}
	full := DebtorGroup{DebtorID: "e1", Members: []Obligation{{ID: "o1"}, {ID: "o2"}}}
	partial := DebtorGroup{DebtorID: "e1", Members: []Obligation{{ID: "o1"}}}
	other := DebtorGroup{DebtorID: "e2", Members: []Obligation{{ID: "o1"}, {ID: "o2"}}}

	assert.Equal(t, QueueKey("t1", dueDate, "2026-01-04", full), QueueKey("t1", dueDate, "2026-01-04", partial),
		"paying one member must not produce a new key")
	assert.NotEqual(t, QueueKey("t1", dueDate, "2026-01-04", full), QueueKey("t1", dueDate, "2026-01-04", other))
	assert.NotEqual(t, QueueKey("t1", dueDate, "2026-01-04", full), QueueKey("t1", dueDate, "2026-01-05", full))

	creation := Rule{ID: "c1", EventType: EventCreation}
	assert.NotEqual(t, QueueKey("t1", creation, "2026-01-04", full), QueueKey("t1", creation, "2026-01-04", partial),
		"a new installment for the same debtor is a new batch")
}
