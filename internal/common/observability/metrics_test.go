package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WithoutTracing(t *testing.T) {
	o, err := New("collections-reminders-test", "")
	require.NoError(t, err)
	assert.Nil(t, o.tracerProvider)

	assert.NotPanics(t, func() {
		o.RecordRun(context.Background(), "scheduled", "success", 120*time.Millisecond)
		o.RecordMessages(context.Background(), "queue", 3)
		o.RecordMessages(context.Background(), "direct", 0)
		o.Shutdown()
	})
}

func TestZeroValue_IsSafe(t *testing.T) {
	var o Observability
	assert.NotPanics(t, func() {
		o.RecordRun(context.Background(), "immediate", "error", time.Second)
		o.Shutdown()
	})
}
