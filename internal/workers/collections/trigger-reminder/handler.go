// internal/workers/collections/trigger-reminder/handler.go
package triggerreminder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"collections-reminders/internal/common/errors"
	"collections-reminders/internal/common/logger"
	"collections-reminders/internal/common/metrics"
	"collections-reminders/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "collections-trigger-reminder"
)

type Handler struct {
	config       *Config
	engine       Trigger
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	CustomConfig *Config
	Engine       Trigger
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	config := opts.CustomConfig
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       config,
		engine:       opts.Engine,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(client, job, err, start)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(client, job, err, start)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	report, err := h.engine.TriggerImmediate(ctx, input.TenantID, dedupe(input.ObligationIDs))
	if err != nil {
		return nil, err
	}

	h.logger.Info("reminders triggered", map[string]interface{}{
		"runId":    report.RunID,
		"tenantId": input.TenantID,
		"sent":     report.Sent,
		"queued":   report.Queued,
		"failures": len(report.Failures),
	})
	return newOutput(report), nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	result, err := validation.ValidateVariables(job.Variables, GetInputSchema(h.config.MaxObligations))
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
	}
	input.TenantID = strings.TrimSpace(input.TenantID)
	if input.TenantID == "" {
		return nil, errors.NewInvalidInputError("tenantId is required")
	}
	return &input, nil
}

// dedupe drops repeated ids, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (h *Handler) fail(client worker.JobClient, job entities.Job, err error, start time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
