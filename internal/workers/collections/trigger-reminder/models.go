// internal/workers/collections/trigger-reminder/models.go
package triggerreminder

import (
	"context"

	"collections-reminders/internal/collections"
)

// Trigger runs CREATION rules over freshly created installments.
type Trigger interface {
	TriggerImmediate(ctx context.Context, tenantID string, obligationIDs []string) (*collections.Report, error)
}

type Input struct {
	TenantID      string   `json:"tenantId"`
	ObligationIDs []string `json:"obligationIds"`
}

type Output struct {
	RunID        string                    `json:"runId"`
	Rules        int                       `json:"rules"`
	Groups       int                       `json:"groups"`
	Sent         int                       `json:"sent"`
	Queued       int                       `json:"queued"`
	Duplicates   int                       `json:"duplicates"`
	Skipped      int                       `json:"skipped"`
	FailureCount int                       `json:"failureCount"`
	Failures     []collections.UnitFailure `json:"failures,omitempty"`
}

func newOutput(r *collections.Report) *Output {
	return &Output{
		RunID:        r.RunID,
		Rules:        r.Rules,
		Groups:       r.Groups,
		Sent:         r.Sent,
		Queued:       r.Queued,
		Duplicates:   r.Duplicates,
		Skipped:      r.Skipped,
		FailureCount: len(r.Failures),
		Failures:     r.Failures,
	}
}
