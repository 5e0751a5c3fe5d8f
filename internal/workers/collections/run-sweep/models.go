// internal/workers/collections/run-sweep/models.go
package runsweep

import (
	"context"

	"collections-reminders/internal/collections"
)

// Sweeper is the part of the engine this worker drives.
type Sweeper interface {
	Sweep(ctx context.Context, ref collections.Date) (*collections.Report, error)
	Today() collections.Date
}

// Input is optional: an empty referenceDate means today in the business timezone.
type Input struct {
	ReferenceDate string `json:"referenceDate,omitempty"`
}

type Output struct {
	RunID         string                    `json:"runId"`
	ReferenceDate string                    `json:"referenceDate"`
	Tenants       int                       `json:"tenants"`
	Rules         int                       `json:"rules"`
	Groups        int                       `json:"groups"`
	Queued        int                       `json:"queued"`
	Duplicates    int                       `json:"duplicates"`
	Skipped       int                       `json:"skipped"`
	FailureCount  int                       `json:"failureCount"`
	Failures      []collections.UnitFailure `json:"failures,omitempty"`
}

func newOutput(r *collections.Report) *Output {
	return &Output{
		RunID:         r.RunID,
		ReferenceDate: r.ReferenceDate.String(),
		Tenants:       r.Tenants,
		Rules:         r.Rules,
		Groups:        r.Groups,
		Queued:        r.Queued,
		Duplicates:    r.Duplicates,
		Skipped:       r.Skipped,
		FailureCount:  len(r.Failures),
		Failures:      r.Failures,
	}
}
