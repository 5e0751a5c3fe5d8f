// internal/workers/collections/run-sweep/handler.go
package runsweep

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"collections-reminders/internal/collections"
	"collections-reminders/internal/common/errors"
	"collections-reminders/internal/common/logger"
	"collections-reminders/internal/common/metrics"
	"collections-reminders/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "collections-run-sweep"
)

type Handler struct {
	config       *Config
	engine       Sweeper
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	CustomConfig *Config
	Engine       Sweeper
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

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(client, job, err, start)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(client, job, err, start)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute runs one sweep. Per-tenant failures are reported in the output; only
// an aborted run fails the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ref := h.engine.Today()
	if input.ReferenceDate != "" {
		parsed, err := collections.ParseDate(input.ReferenceDate)
		if err != nil {
			return nil, errors.NewInvalidInputError(err.Error())
		}
		ref = parsed
	}

	report, err := h.engine.Sweep(ctx, ref)
	if err != nil {
		return nil, err
	}

	if len(report.Failures) > 0 {
		h.logger.Warn("sweep finished with failures", map[string]interface{}{
			"runId":    report.RunID,
			"failures": len(report.Failures),
		})
	}
	return newOutput(report), nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	result, err := validation.ValidateVariables(job.Variables, GetInputSchema())
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if strings.TrimSpace(job.Variables) != "" {
		if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err))
		}
	}
	return &input, nil
}

// fail reports to the broker on a fresh context; the job context may have expired.
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
