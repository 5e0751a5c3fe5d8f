// internal/workers/collections/set-enabled/handler.go
package setenabled

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
	TaskType = "collections-set-enabled"
)

var inputSchema = validation.JSONSchema{
	Type:     "object",
	Required: []string{"tenantId", "enabled"},
	Properties: map[string]validation.Property{
		"tenantId": {Type: "string", MinLength: validation.IntPtr(1)},
		"enabled":  {Type: "boolean"},
	},
	AdditionalProperties: true,
}

type Handler struct {
	config       *Config
	engine       Toggler
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, engine Toggler, log logger.Logger) (*Handler, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		engine:       engine,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	input, err := h.parseInput(job)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
		var output *Output
		output, err = h.Execute(ctx, input)
		cancel()
		if err == nil {
			h.completeJob(client, job, output)
			metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
			return
		}
	}

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(context.Background(), client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := h.engine.SetCollectionsEnabled(ctx, input.TenantID, *input.Enabled); err != nil {
		return nil, err
	}
	return &Output{TenantID: input.TenantID, CollectionsEnabled: *input.Enabled}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	result, err := validation.ValidateVariables(job.Variables, inputSchema)
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
	return &input, nil
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
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
