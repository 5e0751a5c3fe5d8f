package collections

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_DropsNotifiedForSameRuleOnly(t *testing.T) {
	store := newMemStore()
	store.logs = []LogEntry{
		{ObligationID: "o1", RuleID: "r1", Status: LogSuccess},
		{ObligationID: "o2", RuleID: "r2", Status: LogFailure},
	}
	in := []Obligation{{ID: "o1"}, {ID: "o2"}, {ID: "o3"}}

	f := NewFilter(store, 0)

	got, err := f.Filter(context.Background(), in, Rule{ID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, []Obligation{{ID: "o2"}, {ID: "o3"}}, got)

	got, err = f.Filter(context.Background(), in, Rule{ID: "r2"})
	require.NoError(t, err)
	assert.Equal(t, []Obligation{{ID: "o1"}, {ID: "o3"}}, got)

	assert.Len(t, in, 3, "input must not be modified")
}

func TestFilter_Empty(t *testing.T) {
	got, err := NewFilter(newMemStore(), 0).Filter(context.Background(), nil, Rule{ID: "r1"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
