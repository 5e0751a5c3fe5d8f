// internal/collections/dispatch.go
package collections

import (
	"context"
	"errors"
	"time"

	apperrors "collections-reminders/internal/common/errors"
	"collections-reminders/internal/common/logger"

	"github.com/google/uuid"
)

// RouterConfig tunes the delivery router.
type RouterConfig struct {
	// BulkThreshold is the largest unscheduled batch sent directly.
	BulkThreshold    int
	PriorityCreation int
	PriorityDueDate  int
	CountryCode      string
	CallTimeout      time.Duration
}

// Result describes what happened to one debtor group.
type Result struct {
	Outcome   Outcome
	Path      string
	Reason    string
	Recipient string
	Message   string
	QueueID   string
}

// Router delivers a debtor group directly through the transport or through the queue.
type Router struct {
	channels  ChannelStore
	logs      LogStore
	queue     QueueStore
	transport Transport
	renderer  *Renderer
	formatter *Formatter
	cfg       RouterConfig
	logger    logger.Logger

	now   func() time.Time
	newID func() string
}

func NewRouter(store Store, transport Transport, formatter *Formatter, cfg RouterConfig, log logger.Logger) *Router {
	return &Router{
		channels:  store,
		logs:      store,
		queue:     store,
		transport: transport,
		renderer:  NewRenderer(store, log),
		formatter: formatter,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// UseQueue reports whether a batch must be queued: scheduled runs always are, and
// unscheduled batches larger than the bulk threshold are.
func (r *Router) UseQueue(scheduled bool, batchSize int) bool {
	return scheduled || batchSize > r.cfg.BulkThreshold
}

func (r *Router) priority(t EventType) int {
	if t == EventCreation {
		return r.cfg.PriorityCreation
	}
	return r.cfg.PriorityDueDate
}

// Dispatch delivers group for rule. Skips and queue duplicates are not errors.
// On the direct path a log entry is written for every member only after the
// transport accepted the message.
func (r *Router) Dispatch(ctx context.Context, tenant Tenant, group DebtorGroup, rule Rule, useQueue bool, ref Date) (Result, error) {
	res := Result{Path: PathDirect}
	if useQueue {
		res.Path = PathQueue
	}

	channel, err := r.channelConfig(ctx, tenant.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		return r.skip(res, SkipNoChannel), nil
	case err != nil:
		return res, apperrors.NewChannelLookupError(tenant.ID, err)
	case !channel.Active:
		return r.skip(res, SkipChannelInactive), nil
	}

	phone, ok := NormalizePhone(group.Debtor.GuardianPhone, r.cfg.CountryCode)
	if !ok {
		return r.skip(res, SkipNoContact), nil
	}
	res.Recipient = phone

	params := r.formatter.Params(group)
	if useQueue {
		return r.enqueue(ctx, res, tenant, group, rule, params, ref)
	}
	return r.send(ctx, res, tenant, group, rule, params)
}

func (r *Router) channelConfig(ctx context.Context, tenantID string) (*ChannelConfig, error) {
	callCtx, cancel := withTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return r.channels.ChannelConfig(callCtx, tenantID)
}

func (r *Router) skip(res Result, reason string) Result {
	res.Outcome = OutcomeSkipped
	res.Reason = reason
	return res
}

func (r *Router) enqueue(ctx context.Context, res Result, tenant Tenant, group DebtorGroup, rule Rule, params Params, ref Date) (Result, error) {
	ids := group.ObligationIDs()
	payload := QueuePayload{
		TenantID:       tenant.ID,
		RecipientPhone: res.Recipient,
		RuleID:         rule.ID,
		EventType:      rule.EventType,
		TemplateKey:    rule.TemplateKey,
		Params:         params,
		ObligationIDs:  ids,
		ReferenceDate:  ref.String(),
	}
	if rule.UseCustomMessage {
		payload.CustomMessage = rule.CustomMessage
	}
	if err := ValidatePayload(payload); err != nil {
		return res, apperrors.NewPayloadValidationError(err)
	}

	entry := QueueEntry{
		ID:             r.newID(),
		TenantID:       tenant.ID,
		Payload:        payload,
		Status:         QueueStatusPending,
		Priority:       r.priority(rule.EventType),
		IdempotencyKey: QueueKey(tenant.ID, rule, payload.ReferenceDate, group),
		CreatedAt:      r.now().UTC(),
	}

	callCtx, cancel := withTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	inserted, err := r.queue.InsertQueueEntry(callCtx, entry)
	if err != nil {
		return res, apperrors.NewQueueInsertError(err)
	}
	if !inserted {
		res.Outcome = OutcomeDuplicate
		return res, nil
	}

	res.Outcome = OutcomeQueued
	res.QueueID = entry.ID
	return res, nil
}

func (r *Router) send(ctx context.Context, res Result, tenant Tenant, group DebtorGroup, rule Rule, params Params) (Result, error) {
	lookupCtx, cancelLookup := withTimeout(ctx, r.cfg.CallTimeout)
	text, err := r.renderer.Render(lookupCtx, rule, params)
	cancelLookup()
	if err != nil {
		return res, apperrors.NewTemplateLookupError(rule.TemplateKey, err)
	}
	res.Message = text

	sendCtx, cancelSend := withTimeout(ctx, r.cfg.CallTimeout)
	err = r.transport.Send(sendCtx, res.Recipient, text)
	cancelSend()
	if err != nil {
		return res, apperrors.NewTransportSendError(r.transport.Name(), err)
	}

	now := r.now().UTC()
	meta := LogMetadata{
		Message:   text,
		GroupSize: group.Count(),
		Channel:   r.transport.Name(),
		Recipient: res.Recipient,
	}
	entries := make([]LogEntry, 0, group.Count())
	for _, m := range group.Members {
		entries = append(entries, LogEntry{
			ID:           r.newID(),
			TenantID:     tenant.ID,
			ObligationID: m.ID,
			RuleID:       rule.ID,
			Status:       LogSuccess,
			Metadata:     meta,
			CreatedAt:    now,
		})
	}

	writeCtx, cancelWrite := withTimeout(ctx, r.cfg.CallTimeout)
	defer cancelWrite()
	if err := r.logs.InsertLogEntries(writeCtx, entries); err != nil {
		// The message is out; a retry of this group will send it again.
		r.logger.Error("message sent but notification log write failed", map[string]interface{}{
			"tenantId":      tenant.ID,
			"ruleId":        rule.ID,
			"obligationIds": group.ObligationIDs(),
			"error":         err.Error(),
		})
		return res, apperrors.NewStorageWriteError("notification log", err)
	}

	res.Outcome = OutcomeSent
	return res, nil
}
