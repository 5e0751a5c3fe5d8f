package main

import (
	"context"
	"time"

	"collections-reminders/internal/collections"
	"collections-reminders/internal/common/observability"
)

// instrumentedEngine records every run on the otel meter, whichever entry point
// (cron, Zeebe job) started it.
type instrumentedEngine struct {
	*collections.Engine
	obs *observability.Observability
}

func (e *instrumentedEngine) Sweep(ctx context.Context, ref collections.Date) (*collections.Report, error) {
	start := time.Now()
	report, err := e.Engine.Sweep(ctx, ref)
	e.record(ctx, collections.TriggerScheduled, report, err, start)
	return report, err
}

func (e *instrumentedEngine) TriggerImmediate(ctx context.Context, tenantID string, obligationIDs []string) (*collections.Report, error) {
	start := time.Now()
	report, err := e.Engine.TriggerImmediate(ctx, tenantID, obligationIDs)
	e.record(ctx, collections.TriggerImmediate, report, err, start)
	return report, err
}

func (e *instrumentedEngine) record(ctx context.Context, trigger string, report *collections.Report, err error, start time.Time) {
	status := "success"
	switch {
	case err != nil:
		status = "error"
	case report != nil && len(report.Failures) > 0:
		status = "partial"
	}
	e.obs.RecordRun(ctx, trigger, status, time.Since(start))

	if report != nil {
		e.obs.RecordMessages(ctx, collections.PathDirect, report.Sent)
		e.obs.RecordMessages(ctx, collections.PathQueue, report.Queued)
	}
}
