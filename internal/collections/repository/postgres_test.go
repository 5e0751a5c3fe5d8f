package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"collections-reminders/internal/collections"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

var obligationRowColumns = []string{
	"id", "tenant_id", "enrollment_id", "value", "due_date", "status",
	"payment_link", "student_name", "guardian_name", "guardian_phone",
}

func TestListTenants_ParsesModules(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM tenants\s+WHERE active = true`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active", "enabled_modules"}).
			AddRow("t1", "Escola A", true, []byte(`{"collections": true, "library": false}`)).
			AddRow("t2", "Escola B", true, []byte(`["collections", "library"]`)).
			AddRow("t3", "Escola C", true, []byte(`null`)))

	tenants, err := store.ListTenants(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 3)

	assert.True(t, tenants[0].CollectionsActive("collections"))
	assert.False(t, tenants[0].Modules["library"])
	assert.True(t, tenants[1].CollectionsActive("collections"))
	assert.True(t, tenants[1].Modules["library"])
	assert.False(t, tenants[2].CollectionsActive("collections"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTenants_BadModulesBlob(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM tenants`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active", "enabled_modules"}).
			AddRow("t1", "Escola A", true, []byte(`"collections"`)))

	_, err := store.ListTenants(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enabled_modules")
}

func TestGetTenant_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM tenants\s+WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetTenant(context.Background(), "missing")
	assert.ErrorIs(t, err, collections.ErrNotFound)
}

func TestCollectionsEnabled(t *testing.T) {
	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		want    bool
		wantErr bool
	}{
		{
			name: "enabled",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM tenant_settings`).
					WithArgs("t1", "collections_enabled").
					WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(true))
			},
			want: true,
		},
		{
			name: "missing row means disabled",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM tenant_settings`).
					WithArgs("t1", "collections_enabled").
					WillReturnError(sql.ErrNoRows)
			},
			want: false,
		},
		{
			name: "query failure",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM tenant_settings`).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.mock(mock)

			got, err := store.CollectionsEnabled(context.Background(), "t1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetCollectionsEnabled_Upserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO tenant_settings .* ON CONFLICT \(tenant_id, key\) DO UPDATE`).
		WithArgs("t1", "collections_enabled", false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SetCollectionsEnabled(context.Background(), "t1", false))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveRules(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM collection_rules\s+WHERE tenant_id = \$1 AND event_type = \$2 AND active = true`).
		WithArgs("t1", "DUE_DATE").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "name", "event_type", "day_offset",
			"template_key", "custom_message", "use_custom_message", "active",
		}).
			AddRow("r1", "t1", "3 dias antes", "DUE_DATE", -3, "reminder_before", "", false, true).
			AddRow("r2", "t1", "Atraso", "DUE_DATE", 3, "", "Olá {{guardian_name}}", true, true))

	rules, err := store.ActiveRules(context.Background(), "t1", collections.EventDueDate)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, -3, rules[0].DayOffset)
	assert.Equal(t, collections.EventDueDate, rules[1].EventType)
	assert.True(t, rules[1].UseCustomMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingObligationsDueOn(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM installments i.*WHERE i.tenant_id = \$1 AND i.status = 'pending' AND i.due_date = \$2`).
		WithArgs("t1", "2026-01-01").
		WillReturnRows(sqlmock.NewRows(obligationRowColumns).
			AddRow("o1", "t1", "e1", "200.00", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "pending",
				"https://pay/o1", "Ana", "Maria", "(11) 98765-4321"))

	got, err := store.PendingObligationsDueOn(context.Background(), "t1", collections.MustParseDate("2026-01-01"))
	require.NoError(t, err)
	require.Len(t, got, 1)

	o := got[0]
	assert.True(t, o.Value.Equal(decimal.RequireFromString("200")))
	assert.Equal(t, "2026-01-01", o.DueDate.String())
	assert.Equal(t, collections.StatusPending, o.Status)
	assert.Equal(t, "Maria", o.Debtor.GuardianName)
	assert.Equal(t, "(11) 98765-4321", o.Debtor.GuardianPhone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestObligationsByIDs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE i.tenant_id = \$1 AND i.id = ANY\(\$2\)`).
		WithArgs("t1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(obligationRowColumns).
			AddRow("o1", "t1", "e1", "100.00", "2026-02-10", "pending", "", "Ana", "Maria", "11987654321").
			AddRow("o2", "t1", "e1", "50.00", "2026-03-10", "paid", "", "Ana", "Maria", "11987654321"))

	got, err := store.ObligationsByIDs(context.Background(), "t1", []string{"o1", "o2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, collections.StatusPaid, got[1].Status)
}

func TestNotifiedObligationIDs(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM notification_logs\s+WHERE rule_id = \$1 AND installment_id = ANY\(\$2\)`).
		WithArgs("r1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"installment_id"}).AddRow("o2"))

	got, err := store.NotifiedObligationIDs(context.Background(), "r1", []string{"o1", "o2"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "o2")
}

func TestNotifiedObligationIDs_EmptyInput(t *testing.T) {
	store, mock := newMockStore(t)

	got, err := store.NotifiedObligationIDs(context.Background(), "r1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLogEntries_Transaction(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 1, 4, 11, 0, 0, 0, time.UTC)

	entries := []collections.LogEntry{
		{ID: "l1", TenantID: "t1", ObligationID: "o1", RuleID: "r1", Status: collections.LogSuccess,
			Metadata: collections.LogMetadata{Message: "hi", GroupSize: 2}, CreatedAt: now},
		{ID: "l2", TenantID: "t1", ObligationID: "o2", RuleID: "r1", Status: collections.LogSuccess,
			Metadata: collections.LogMetadata{Message: "hi", GroupSize: 2}, CreatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notification_logs`).
		WithArgs("l1", "t1", "o1", "r1", "SUCCESS", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO notification_logs`).
		WithArgs("l2", "t1", "o2", "r1", "SUCCESS", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.InsertLogEntries(context.Background(), entries))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLogEntries_RollbackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notification_logs`).
		WillReturnError(errors.New("unique violation"))
	mock.ExpectRollback()

	err := store.InsertLogEntries(context.Background(), []collections.LogEntry{{ID: "l1", ObligationID: "o1", RuleID: "r1"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertQueueEntry(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"inserted", 1, true},
		{"duplicate idempotency key", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			mock.ExpectExec(`INSERT INTO notification_queue .* ON CONFLICT \(idempotency_key\) DO NOTHING`).
				WithArgs("q1", "t1", sqlmock.AnyArg(), "PENDING", 5, "key-1", sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			got, err := store.InsertQueueEntry(context.Background(), collections.QueueEntry{
				ID: "q1", TenantID: "t1", Status: collections.QueueStatusPending, Priority: 5,
				IdempotencyKey: "key-1", CreatedAt: time.Now(),
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChannelConfig(t *testing.T) {
	t.Run("parses settings", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM messaging_channels`).
			WithArgs("t1").
			WillReturnRows(sqlmock.NewRows([]string{"tenant_id", "provider", "settings"}).
				AddRow("t1", "sns", []byte(`{"active": true, "senderId": "ESCOLA", "apiKey": "ignored"}`)))

		cfg, err := store.ChannelConfig(context.Background(), "t1")
		require.NoError(t, err)
		assert.True(t, cfg.Active)
		assert.Equal(t, "ESCOLA", cfg.SenderID)
		assert.Equal(t, "sns", cfg.Provider)
	})

	t.Run("not found", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM messaging_channels`).WillReturnError(sql.ErrNoRows)

		_, err := store.ChannelConfig(context.Background(), "t1")
		assert.ErrorIs(t, err, collections.ErrNotFound)
	})
}

func TestLookupTemplate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM message_templates\s+WHERE key = \$1`).
		WithArgs("reminder_before").
		WillReturnRows(sqlmock.NewRows([]string{"key", "title", "body"}).
			AddRow("reminder_before", "Lembrete", "Vence em {{due_date}}"))
	mock.ExpectQuery(`FROM message_templates`).
		WithArgs("unknown").
		WillReturnError(sql.ErrNoRows)

	tmpl, err := store.LookupTemplate(context.Background(), "reminder_before")
	require.NoError(t, err)
	assert.Equal(t, "Lembrete", tmpl.Title)

	_, err = store.LookupTemplate(context.Background(), "unknown")
	assert.ErrorIs(t, err, collections.ErrNotFound)
}
