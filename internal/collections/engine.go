// internal/collections/engine.go
package collections

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "collections-reminders/internal/common/errors"
	"collections-reminders/internal/common/logger"
	"collections-reminders/internal/common/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Run triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerImmediate = "immediate"
)

// Config holds engine settings.
type Config struct {
	ModuleKey         string
	Location          *time.Location
	CallTimeout       time.Duration
	TenantConcurrency int
	Router            RouterConfig
}

// Engine runs the reminder pipeline: eligibility, dedup, grouping and dispatch.
type Engine struct {
	store    Store
	resolver *Resolver
	filter   *Filter
	router   *Router
	audit    AuditSink
	cfg      Config
	logger   logger.Logger
	tracer   trace.Tracer
}

func NewEngine(store Store, transport Transport, formatter *Formatter, audit AuditSink, cfg Config, log logger.Logger) *Engine {
	if audit == nil {
		audit = NopAuditSink{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.TenantConcurrency < 1 {
		cfg.TenantConcurrency = 1
	}
	if cfg.Router.CallTimeout == 0 {
		cfg.Router.CallTimeout = cfg.CallTimeout
	}

	return &Engine{
		store:    store,
		resolver: NewResolver(store, cfg.CallTimeout),
		filter:   NewFilter(store, cfg.CallTimeout),
		router:   NewRouter(store, transport, formatter, cfg.Router, log),
		audit:    audit,
		cfg:      cfg,
		logger:   log,
		tracer:   otel.Tracer("collections-reminders/collections"),
	}
}

// Today is the reference date in the configured business timezone.
func (e *Engine) Today() Date {
	return Today(e.cfg.Location)
}

// UseQueue exposes the routing decision.
func (e *Engine) UseQueue(scheduled bool, batchSize int) bool {
	return e.router.UseQueue(scheduled, batchSize)
}

// SetCollectionsEnabled flips the tenant's operational toggle.
func (e *Engine) SetCollectionsEnabled(ctx context.Context, tenantID string, enabled bool) error {
	if tenantID == "" {
		return apperrors.NewInvalidInputError("tenantId is required")
	}

	callCtx, cancel := withTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	if _, err := e.store.GetTenant(callCtx, tenantID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperrors.NewTenantNotFoundError(tenantID)
		}
		return apperrors.NewStorageReadError("tenant", err)
	}
	if err := e.store.SetCollectionsEnabled(callCtx, tenantID, enabled); err != nil {
		return apperrors.NewStorageWriteError("tenant settings", err)
	}

	e.logger.Info("collections toggle updated", map[string]interface{}{
		"tenantId": tenantID,
		"enabled":  enabled,
	})
	return nil
}

// Sweep evaluates every active DUE_DATE rule of every eligible tenant against ref.
// All resulting messages are queued. Only a failure to list tenants aborts the run;
// tenant, rule and group failures are recorded in the report.
func (e *Engine) Sweep(ctx context.Context, ref Date) (*Report, error) {
	report := newReport(TriggerScheduled, ref)
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "collections.sweep", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
		attribute.String("reference_date", ref.String()),
	))
	defer span.End()

	e.logger.Info("sweep started", map[string]interface{}{
		"runId":         report.RunID,
		"referenceDate": ref.String(),
	})

	listCtx, cancel := withTimeout(ctx, e.cfg.CallTimeout)
	tenants, err := e.store.ListTenants(listCtx)
	cancel()
	if err != nil {
		stdErr := apperrors.NewStorageReadError("tenants", err)
		e.finish(span, report, start, stdErr)
		return report, stdErr
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(e.cfg.TenantConcurrency)

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			break
		}
		tenant := tenant
		g.Go(func() error {
			sub := newReport(TriggerScheduled, ref)
			sub.RunID = report.RunID
			e.sweepTenant(ctx, tenant, ref, sub)

			mu.Lock()
			report.merge(sub)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	e.finish(span, report, start, ctx.Err())
	return report, ctx.Err()
}

func (e *Engine) sweepTenant(ctx context.Context, tenant Tenant, ref Date, report *Report) {
	ctx, span := e.tracer.Start(ctx, "collections.sweep.tenant", trace.WithAttributes(
		attribute.String("tenant_id", tenant.ID),
	))
	defer span.End()

	ok, err := e.eligible(ctx, tenant)
	if err != nil {
		e.unitFailed(report, tenant.ID, "", StageTenant, err)
		return
	}
	if !ok {
		return
	}
	report.Tenants++

	rulesCtx, cancel := withTimeout(ctx, e.cfg.CallTimeout)
	rules, err := e.store.ActiveRules(rulesCtx, tenant.ID, EventDueDate)
	cancel()
	if err != nil {
		e.unitFailed(report, tenant.ID, "", StageRules, apperrors.NewStorageReadError("rules", err))
		return
	}

	for _, rule := range rules {
		if ctx.Err() != nil {
			return
		}
		report.Rules++

		obligations, err := e.resolver.Resolve(ctx, tenant, rule, ref)
		if err != nil {
			e.unitFailed(report, tenant.ID, rule.ID, StageEligibility, err)
			continue
		}
		e.process(ctx, tenant, rule, obligations, true, ref, report)
	}
}

// TriggerImmediate runs the tenant's active CREATION rules over freshly created
// installments. Small batches are sent directly, larger ones are queued.
func (e *Engine) TriggerImmediate(ctx context.Context, tenantID string, obligationIDs []string) (*Report, error) {
	ref := e.Today()
	report := newReport(TriggerImmediate, ref)
	start := time.Now()

	ctx, span := e.tracer.Start(ctx, "collections.trigger", trace.WithAttributes(
		attribute.String("run_id", report.RunID),
		attribute.String("tenant_id", tenantID),
		attribute.Int("obligations", len(obligationIDs)),
	))
	defer span.End()

	if tenantID == "" {
		err := apperrors.NewInvalidInputError("tenantId is required")
		e.finish(span, report, start, err)
		return report, err
	}
	if len(obligationIDs) == 0 {
		e.finish(span, report, start, nil)
		return report, nil
	}

	tenant, err := e.tenant(ctx, tenantID)
	if err != nil {
		e.finish(span, report, start, err)
		return report, err
	}

	ok, err := e.eligible(ctx, *tenant)
	if err != nil {
		e.finish(span, report, start, err)
		return report, err
	}
	if !ok {
		err := apperrors.NewTenantNotEligibleError(tenantID, "collections module disabled")
		e.finish(span, report, start, err)
		return report, err
	}
	report.Tenants++

	rulesCtx, cancel := withTimeout(ctx, e.cfg.CallTimeout)
	rules, err := e.store.ActiveRules(rulesCtx, tenantID, EventCreation)
	cancel()
	if err != nil {
		stdErr := apperrors.NewStorageReadError("rules", err)
		e.finish(span, report, start, stdErr)
		return report, stdErr
	}
	if len(rules) == 0 {
		e.finish(span, report, start, nil)
		return report, nil
	}

	obligations, err := e.resolver.ResolveIDs(ctx, *tenant, obligationIDs)
	if err != nil {
		e.finish(span, report, start, err)
		return report, err
	}

	useQueue := e.router.UseQueue(false, len(obligationIDs))
	for _, rule := range rules {
		report.Rules++
		e.process(ctx, *tenant, rule, obligations, useQueue, ref, report)
	}

	e.finish(span, report, start, nil)
	return report, nil
}

// process runs dedup, grouping and dispatch for one rule. Each group is an
// independent unit: a failure is recorded and the next group is attempted.
func (e *Engine) process(ctx context.Context, tenant Tenant, rule Rule, obligations []Obligation, useQueue bool, ref Date, report *Report) {
	fresh, err := e.filter.Filter(ctx, obligations, rule)
	if err != nil {
		e.unitFailed(report, tenant.ID, rule.ID, StageDedup, err)
		return
	}

	for _, group := range Group(fresh) {
		if ctx.Err() != nil {
			return
		}
		report.Groups++

		res, err := e.router.Dispatch(ctx, tenant, group, rule, useQueue, ref)
		if err != nil {
			res.Outcome = OutcomeFailed
			e.unitFailed(report, tenant.ID, rule.ID, StageDispatch, err)
		}
		report.count(res.Outcome)
		metrics.Dispatches.WithLabelValues(res.Path, string(res.Outcome)).Inc()

		e.record(ctx, report, tenant, rule, group, res, err)
	}
}

func (e *Engine) record(ctx context.Context, report *Report, tenant Tenant, rule Rule, group DebtorGroup, res Result, dispatchErr error) {
	rec := DispatchRecord{
		RunID:         report.RunID,
		Trigger:       report.Trigger,
		TenantID:      tenant.ID,
		RuleID:        rule.ID,
		EventType:     rule.EventType,
		DebtorID:      group.DebtorID,
		ObligationIDs: group.ObligationIDs(),
		Path:          res.Path,
		Outcome:       res.Outcome,
		Reason:        res.Reason,
		Amount:        group.Total.StringFixed(2),
		ReferenceDate: report.ReferenceDate.String(),
		Timestamp:     time.Now().UTC(),
	}
	if dispatchErr != nil {
		rec.ErrorCode = string(apperrors.CodeOf(dispatchErr))
	}

	if err := e.audit.Record(ctx, rec); err != nil {
		e.logger.Warn("audit record failed", map[string]interface{}{
			"runId":    report.RunID,
			"tenantId": tenant.ID,
			"error":    err.Error(),
		})
	}
}

func (e *Engine) tenant(ctx context.Context, tenantID string) (*Tenant, error) {
	callCtx, cancel := withTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	tenant, err := e.store.GetTenant(callCtx, tenantID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewTenantNotFoundError(tenantID)
	}
	if err != nil {
		return nil, apperrors.NewStorageReadError("tenant", err)
	}
	return tenant, nil
}

// eligible checks the module subscription and the operational toggle.
func (e *Engine) eligible(ctx context.Context, tenant Tenant) (bool, error) {
	if !tenant.CollectionsActive(e.cfg.ModuleKey) {
		return false, nil
	}

	callCtx, cancel := withTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	enabled, err := e.store.CollectionsEnabled(callCtx, tenant.ID)
	if err != nil {
		return false, apperrors.NewStorageReadError("tenant settings", err)
	}
	return enabled, nil
}

func (e *Engine) finish(span trace.Span, report *Report, start time.Time, err error) {
	report.FinishedAt = time.Now().UTC()
	elapsed := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if len(report.Failures) > 0 {
		result = "partial"
	}

	span.SetAttributes(
		attribute.Int("groups", report.Groups),
		attribute.Int("sent", report.Sent),
		attribute.Int("queued", report.Queued),
		attribute.Int("failures", len(report.Failures)),
	)
	metrics.SweepRuns.WithLabelValues(report.Trigger, result).Inc()
	metrics.SweepDuration.WithLabelValues(report.Trigger).Observe(elapsed.Seconds())

	fields := map[string]interface{}{
		"runId":      report.RunID,
		"trigger":    report.Trigger,
		"tenants":    report.Tenants,
		"rules":      report.Rules,
		"groups":     report.Groups,
		"sent":       report.Sent,
		"queued":     report.Queued,
		"duplicates": report.Duplicates,
		"skipped":    report.Skipped,
		"failures":   len(report.Failures),
		"durationMs": elapsed.Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		e.logger.Error("run aborted", fields)
		return
	}
	e.logger.Info("run finished", fields)
}

// newRunID is a var so tests can pin it.
var newRunID = uuid.NewString

func (e *Engine) unitFailed(report *Report, tenantID, ruleID, stage string, err error) {
	e.logger.Warn("collections unit failed", map[string]interface{}{
		"runId":    report.RunID,
		"tenantId": tenantID,
		"ruleId":   ruleID,
		"stage":    stage,
		"error":    err.Error(),
	})
	report.fail(tenantID, ruleID, stage, err)
}
