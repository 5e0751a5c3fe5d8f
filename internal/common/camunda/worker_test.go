package camunda

import (
	"testing"

	"collections-reminders/internal/common/config"
	"collections-reminders/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_SkipsDisabledWorkers(t *testing.T) {
	r := NewRegistry(nil, logger.NewTestLogger(t))

	started := r.Start("collections-run-sweep", config.WorkerConfig{Enabled: false}, func(worker.JobClient, entities.Job) {})

	assert.False(t, started)
	assert.Empty(t, r.TaskTypes())
	r.Close()
}
