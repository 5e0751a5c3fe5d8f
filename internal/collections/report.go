// internal/collections/report.go
package collections

import (
	"time"

	apperrors "collections-reminders/internal/common/errors"
	"collections-reminders/internal/common/metrics"
)

// Failure stages.
const (
	StageTenant      = "tenant"
	StageRules       = "rules"
	StageEligibility = "eligibility"
	StageDedup       = "dedup"
	StageDispatch    = "dispatch"
)

// UnitFailure is a tenant, rule or group that failed without aborting the run.
type UnitFailure struct {
	TenantID string `json:"tenantId"`
	RuleID   string `json:"ruleId,omitempty"`
	Stage    string `json:"stage"`
	Code     string `json:"code"`
	Error    string `json:"error"`
}

// Report summarizes one run.
type Report struct {
	RunID         string        `json:"runId"`
	Trigger       string        `json:"trigger"`
	ReferenceDate Date          `json:"referenceDate"`
	Tenants       int           `json:"tenants"`
	Rules         int           `json:"rules"`
	Groups        int           `json:"groups"`
	Sent          int           `json:"sent"`
	Queued        int           `json:"queued"`
	Duplicates    int           `json:"duplicates"`
	Skipped       int           `json:"skipped"`
	Failures      []UnitFailure `json:"failures,omitempty"`
	StartedAt     time.Time     `json:"startedAt"`
	FinishedAt    time.Time     `json:"finishedAt"`
}

func newReport(trigger string, ref Date) *Report {
	return &Report{
		RunID:         newRunID(),
		Trigger:       trigger,
		ReferenceDate: ref,
		StartedAt:     time.Now().UTC(),
	}
}

func (r *Report) fail(tenantID, ruleID, stage string, err error) {
	code := apperrors.CodeOf(err)
	r.Failures = append(r.Failures, UnitFailure{
		TenantID: tenantID,
		RuleID:   ruleID,
		Stage:    stage,
		Code:     string(code),
		Error:    err.Error(),
	})
	metrics.UnitFailures.WithLabelValues(stage, string(code)).Inc()
}

func (r *Report) count(o Outcome) {
	switch o {
	case OutcomeSent:
		r.Sent++
	case OutcomeQueued:
		r.Queued++
	case OutcomeDuplicate:
		r.Duplicates++
	case OutcomeSkipped:
		r.Skipped++
	}
}

func (r *Report) merge(o *Report) {
	r.Tenants += o.Tenants
	r.Rules += o.Rules
	r.Groups += o.Groups
	r.Sent += o.Sent
	r.Queued += o.Queued
	r.Duplicates += o.Duplicates
	r.Skipped += o.Skipped
	r.Failures = append(r.Failures, o.Failures...)
}
