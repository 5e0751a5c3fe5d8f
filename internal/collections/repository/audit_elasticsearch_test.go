package repository

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"collections-reminders/internal/collections"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestES(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return es
}

func TestElasticsearchAuditSink_Record(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]interface{}
	)
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	sink := NewElasticsearchAuditSink(es, "collections-dispatch-audit")
	err := sink.Record(context.Background(), collections.DispatchRecord{
		RunID:         "run-1",
		TenantID:      "t1",
		RuleID:        "r1",
		DebtorID:      "e1",
		ObligationIDs: []string{"o1"},
		Path:          collections.PathDirect,
		Outcome:       collections.OutcomeSent,
		Timestamp:     time.Now(),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotPath, "/collections-dispatch-audit/_doc/"))
	assert.Contains(t, gotPath, "run-1:r1:e1")
	assert.Equal(t, "sent", gotBody["outcome"])
	assert.Equal(t, "t1", gotBody["tenantId"])
}

func TestElasticsearchAuditSink_ErrorStatus(t *testing.T) {
	es := newTestES(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	sink := NewElasticsearchAuditSink(es, "collections-dispatch-audit")
	err := sink.Record(context.Background(), collections.DispatchRecord{RunID: "run-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
