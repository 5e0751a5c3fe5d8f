// internal/collections/eligibility.go
package collections

import (
	"context"
	"fmt"
	"time"

	apperrors "collections-reminders/internal/common/errors"
)

// Resolver finds the installments a rule targets.
type Resolver struct {
	obligations ObligationStore
	timeout     time.Duration
}

func NewResolver(obligations ObligationStore, timeout time.Duration) *Resolver {
	return &Resolver{obligations: obligations, timeout: timeout}
}

// Resolve returns the pending installments of tenant whose due date is exactly
// ref minus the rule's day offset.
func (r *Resolver) Resolve(ctx context.Context, tenant Tenant, rule Rule, ref Date) ([]Obligation, error) {
	if rule.EventType != EventDueDate {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("rule %s is %s, expected %s", rule.ID, rule.EventType, EventDueDate))
	}

	target := rule.TargetDate(ref)

	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	found, err := r.obligations.PendingObligationsDueOn(callCtx, tenant.ID, target)
	if err != nil {
		return nil, apperrors.NewStorageReadError("pending obligations", err)
	}

	out := make([]Obligation, 0, len(found))
	for _, o := range found {
		if o.TenantID == tenant.ID && o.Status == StatusPending && o.DueDate.Equal(target) {
			out = append(out, o)
		}
	}
	return out, nil
}

// ResolveIDs loads explicitly given installments for CREATION rules. No date is involved;
// anything no longer pending is dropped.
func (r *Resolver) ResolveIDs(ctx context.Context, tenant Tenant, ids []string) ([]Obligation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	callCtx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	found, err := r.obligations.ObligationsByIDs(callCtx, tenant.ID, ids)
	if err != nil {
		return nil, apperrors.NewStorageReadError("obligations by id", err)
	}

	out := make([]Obligation, 0, len(found))
	for _, o := range found {
		if o.TenantID == tenant.ID && o.Status == StatusPending {
			out = append(out, o)
		}
	}
	return out, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
