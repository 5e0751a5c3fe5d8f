// internal/common/camunda/worker.go
package camunda

import (
	"sync"
	"time"

	"collections-reminders/internal/common/config"
	"collections-reminders/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Registry opens job workers and closes them together on shutdown.
type Registry struct {
	client  zbc.Client
	logger  logger.Logger
	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewRegistry(client zbc.Client, log logger.Logger) *Registry {
	return &Registry{
		client:  client,
		logger:  log,
		workers: make(map[string]worker.JobWorker),
	}
}

// Start opens a worker for taskType unless it is disabled in config.
func (r *Registry) Start(taskType string, wcfg config.WorkerConfig, handler worker.JobHandler) bool {
	if !wcfg.Enabled {
		r.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	jobWorker := r.client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	r.mu.Lock()
	r.workers[taskType] = jobWorker
	r.mu.Unlock()

	r.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// TaskTypes lists the open workers.
func (r *Registry) TaskTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.workers))
	for t := range r.workers {
		types = append(types, t)
	}
	return types
}

// Close stops polling and waits for in-flight handlers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for taskType, w := range r.workers {
		r.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		w.Close()
		w.AwaitClose()
	}
	r.workers = make(map[string]worker.JobWorker)
}
