// internal/collections/dedup.go
package collections

import (
	"context"
	"time"

	apperrors "collections-reminders/internal/common/errors"
)

// Filter drops installments that were already notified for a rule. It is the only
// place that enforces "at most once per (installment, rule)".
type Filter struct {
	logs    LogStore
	timeout time.Duration
}

func NewFilter(logs LogStore, timeout time.Duration) *Filter {
	return &Filter{logs: logs, timeout: timeout}
}

// Filter returns a new slice; the input is not modified.
func (f *Filter) Filter(ctx context.Context, obligations []Obligation, rule Rule) ([]Obligation, error) {
	if len(obligations) == 0 {
		return nil, nil
	}

	ids := make([]string, len(obligations))
	for i, o := range obligations {
		ids[i] = o.ID
	}

	callCtx, cancel := withTimeout(ctx, f.timeout)
	defer cancel()

	notified, err := f.logs.NotifiedObligationIDs(callCtx, rule.ID, ids)
	if err != nil {
		return nil, apperrors.NewStorageReadError("notification log", err)
	}

	out := make([]Obligation, 0, len(obligations))
	for _, o := range obligations {
		if _, seen := notified[o.ID]; seen {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
