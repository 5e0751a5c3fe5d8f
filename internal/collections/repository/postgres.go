// internal/collections/repository/postgres.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"collections-reminders/internal/collections"

	"github.com/lib/pq"
)

const settingCollectionsEnabled = "collections_enabled"

// PostgresStore implements collections.Store on the school database.
type PostgresStore struct {
	db *sql.DB
}

var _ collections.Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const listTenantsQuery = `
SELECT id, name, active, COALESCE(enabled_modules, '{}'::jsonb)
FROM tenants
WHERE active = true
ORDER BY id`

func (s *PostgresStore) ListTenants(ctx context.Context) ([]collections.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, listTenantsQuery)
	if err != nil {
		return nil, fmt.Errorf("query tenants: %w", err)
	}
	defer rows.Close()

	var tenants []collections.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

const getTenantQuery = `
SELECT id, name, active, COALESCE(enabled_modules, '{}'::jsonb)
FROM tenants
WHERE id = $1`

func (s *PostgresStore) GetTenant(ctx context.Context, tenantID string) (*collections.Tenant, error) {
	t, err := scanTenant(s.db.QueryRowContext(ctx, getTenantQuery, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, collections.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (collections.Tenant, error) {
	var (
		t       collections.Tenant
		modules []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Active, &modules); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, err
		}
		return t, fmt.Errorf("scan tenant: %w", err)
	}

	parsed, err := parseModules(modules)
	if err != nil {
		return t, fmt.Errorf("tenant %s enabled_modules: %w", t.ID, err)
	}
	t.Modules = parsed
	return t, nil
}

// parseModules accepts {"collections": true} or ["collections"].
func parseModules(raw []byte) (map[string]bool, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]bool{}, nil
	}

	asMap := map[string]bool{}
	if err := json.Unmarshal(raw, &asMap); err == nil {
		return asMap, nil
	}

	var asList []string
	if err := json.Unmarshal(raw, &asList); err != nil {
		return nil, fmt.Errorf("unsupported modules format: %s", string(raw))
	}
	out := make(map[string]bool, len(asList))
	for _, m := range asList {
		out[m] = true
	}
	return out, nil
}

const collectionsEnabledQuery = `
SELECT value
FROM tenant_settings
WHERE tenant_id = $1 AND key = $2`

// CollectionsEnabled reports false when the setting was never written.
func (s *PostgresStore) CollectionsEnabled(ctx context.Context, tenantID string) (bool, error) {
	var enabled bool
	err := s.db.QueryRowContext(ctx, collectionsEnabledQuery, tenantID, settingCollectionsEnabled).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query tenant setting: %w", err)
	}
	return enabled, nil
}

const setCollectionsEnabledQuery = `
INSERT INTO tenant_settings (tenant_id, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (tenant_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

func (s *PostgresStore) SetCollectionsEnabled(ctx context.Context, tenantID string, enabled bool) error {
	if _, err := s.db.ExecContext(ctx, setCollectionsEnabledQuery, tenantID, settingCollectionsEnabled, enabled); err != nil {
		return fmt.Errorf("upsert tenant setting: %w", err)
	}
	return nil
}

const activeRulesQuery = `
SELECT id, tenant_id, name, event_type, day_offset,
       COALESCE(template_key, ''), COALESCE(custom_message, ''), use_custom_message, active
FROM collection_rules
WHERE tenant_id = $1 AND event_type = $2 AND active = true
ORDER BY day_offset, id`

func (s *PostgresStore) ActiveRules(ctx context.Context, tenantID string, eventType collections.EventType) ([]collections.Rule, error) {
	rows, err := s.db.QueryContext(ctx, activeRulesQuery, tenantID, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var rules []collections.Rule
	for rows.Next() {
		var (
			r         collections.Rule
			eventType string
		)
		if err := rows.Scan(&r.ID, &r.TenantID, &r.Name, &eventType, &r.DayOffset,
			&r.TemplateKey, &r.CustomMessage, &r.UseCustomMessage, &r.Active); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.EventType = collections.EventType(eventType)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

const obligationColumns = `
SELECT i.id, i.tenant_id, COALESCE(i.enrollment_id::text, ''), i.value, i.due_date, i.status,
       COALESCE(i.payment_link, ''), COALESCE(st.name, ''), COALESCE(g.name, ''), COALESCE(g.phone, '')
FROM installments i
LEFT JOIN enrollments e ON e.id = i.enrollment_id
LEFT JOIN students st ON st.id = e.student_id
LEFT JOIN guardians g ON g.id = e.guardian_id`

const pendingDueOnQuery = obligationColumns + `
WHERE i.tenant_id = $1 AND i.status = 'pending' AND i.due_date = $2
ORDER BY i.enrollment_id, i.id`

func (s *PostgresStore) PendingObligationsDueOn(ctx context.Context, tenantID string, due collections.Date) ([]collections.Obligation, error) {
	return s.queryObligations(ctx, pendingDueOnQuery, tenantID, due)
}

const obligationsByIDsQuery = obligationColumns + `
WHERE i.tenant_id = $1 AND i.id = ANY($2)
ORDER BY i.enrollment_id, i.due_date, i.id`

func (s *PostgresStore) ObligationsByIDs(ctx context.Context, tenantID string, ids []string) ([]collections.Obligation, error) {
	return s.queryObligations(ctx, obligationsByIDsQuery, tenantID, pq.Array(ids))
}

func (s *PostgresStore) queryObligations(ctx context.Context, query string, args ...any) ([]collections.Obligation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query installments: %w", err)
	}
	defer rows.Close()

	var out []collections.Obligation
	for rows.Next() {
		var (
			o      collections.Obligation
			status string
		)
		if err := rows.Scan(&o.ID, &o.TenantID, &o.EnrollmentID, &o.Value, &o.DueDate, &status,
			&o.PaymentLink, &o.Debtor.StudentName, &o.Debtor.GuardianName, &o.Debtor.GuardianPhone); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		o.Status = collections.ObligationStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}

const notifiedQuery = `
SELECT DISTINCT installment_id
FROM notification_logs
WHERE rule_id = $1 AND installment_id = ANY($2)`

func (s *PostgresStore) NotifiedObligationIDs(ctx context.Context, ruleID string, ids []string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, notifiedQuery, ruleID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query notification logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan notification log: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

const insertLogQuery = `
INSERT INTO notification_logs (id, tenant_id, installment_id, rule_id, status, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// InsertLogEntries writes all entries of a group in one transaction.
func (s *PostgresStore) InsertLogEntries(ctx context.Context, entries []collections.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal log metadata: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insertLogQuery,
			e.ID, e.TenantID, e.ObligationID, e.RuleID, string(e.Status), meta, e.CreatedAt); err != nil {
			return fmt.Errorf("insert notification log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const insertQueueQuery = `
INSERT INTO notification_queue (id, tenant_id, payload, status, priority, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (idempotency_key) DO NOTHING`

func (s *PostgresStore) InsertQueueEntry(ctx context.Context, entry collections.QueueEntry) (bool, error) {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return false, fmt.Errorf("marshal queue payload: %w", err)
	}

	res, err := s.db.ExecContext(ctx, insertQueueQuery,
		entry.ID, entry.TenantID, payload, entry.Status, entry.Priority, entry.IdempotencyKey, entry.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert queue entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

const channelQuery = `
SELECT tenant_id, provider, COALESCE(settings, '{}'::jsonb)
FROM messaging_channels
WHERE tenant_id = $1
ORDER BY updated_at DESC
LIMIT 1`

// channelSettings is the part of the settings blob the engine reads.
type channelSettings struct {
	Active   bool   `json:"active"`
	SenderID string `json:"senderId"`
}

func (s *PostgresStore) ChannelConfig(ctx context.Context, tenantID string) (*collections.ChannelConfig, error) {
	var (
		cfg      collections.ChannelConfig
		settings []byte
	)
	err := s.db.QueryRowContext(ctx, channelQuery, tenantID).Scan(&cfg.TenantID, &cfg.Provider, &settings)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, collections.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query messaging channel: %w", err)
	}

	var parsed channelSettings
	if err := json.Unmarshal(settings, &parsed); err != nil {
		return nil, fmt.Errorf("tenant %s channel settings: %w", tenantID, err)
	}
	cfg.Active = parsed.Active
	cfg.SenderID = parsed.SenderID
	return &cfg, nil
}

const templateQuery = `
SELECT key, COALESCE(title, ''), body
FROM message_templates
WHERE key = $1`

func (s *PostgresStore) LookupTemplate(ctx context.Context, key string) (*collections.Template, error) {
	var t collections.Template
	err := s.db.QueryRowContext(ctx, templateQuery, key).Scan(&t.Key, &t.Title, &t.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, collections.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query template: %w", err)
	}
	return &t, nil
}
