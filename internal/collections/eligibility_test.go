package collections

import (
	"context"
	"testing"

	apperrors "collections-reminders/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Offsets(t *testing.T) {
	store := newMemStore()
	store.obligations = []Obligation{
		obligation("before", "e1", "10", "2026-01-07"),
		obligation("sameday", "e2", "10", "2026-01-04"),
		obligation("overdue", "e3", "10", "2026-01-01"),
	}
	paid := obligation("paid", "e4", "10", "2026-01-01")
	paid.Status = StatusPaid
	store.obligations = append(store.obligations, paid)

	r := NewResolver(store, 0)
	tenant := Tenant{ID: "t1"}
	ref := MustParseDate("2026-01-04")

	tests := []struct {
		offset int
		want   string
	}{
		{-3, "before"},
		{0, "sameday"},
		{3, "overdue"},
	}
	for _, tt := range tests {
		got, err := r.Resolve(context.Background(), tenant, Rule{ID: "r", EventType: EventDueDate, DayOffset: tt.offset}, ref)
		require.NoError(t, err)
		require.Len(t, got, 1, "offset %d", tt.offset)
		assert.Equal(t, tt.want, got[0].ID)
	}
}

func TestResolver_RejectsCreationRule(t *testing.T) {
	r := NewResolver(newMemStore(), 0)
	_, err := r.Resolve(context.Background(), Tenant{ID: "t1"}, Rule{ID: "r", EventType: EventCreation}, MustParseDate("2026-01-04"))
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestResolver_StorageError(t *testing.T) {
	store := newMemStore()
	store.obligErr["t1"] = errBoom

	r := NewResolver(store, 0)
	_, err := r.Resolve(context.Background(), Tenant{ID: "t1"}, Rule{ID: "r", EventType: EventDueDate}, MustParseDate("2026-01-04"))
	assert.Equal(t, apperrors.ErrCodeStorageReadFailed, apperrors.CodeOf(err))
	assert.ErrorIs(t, err, errBoom)
}

func TestResolver_ResolveIDsKeepsPending(t *testing.T) {
	store := newMemStore()
	paid := obligation("o2", "e1", "10", "2026-02-10")
	paid.Status = StatusPaid
	store.obligations = []Obligation{obligation("o1", "e1", "10", "2026-02-10"), paid}

	got, err := NewResolver(store, 0).ResolveIDs(context.Background(), Tenant{ID: "t1"}, []string{"o1", "o2", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "o1", got[0].ID)
}
