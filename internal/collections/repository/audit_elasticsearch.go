// internal/collections/repository/audit_elasticsearch.go
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"collections-reminders/internal/collections"

	"github.com/elastic/go-elasticsearch/v8"
)

// ElasticsearchAuditSink indexes one document per dispatch attempt.
type ElasticsearchAuditSink struct {
	es    *elasticsearch.Client
	index string
}

var _ collections.AuditSink = (*ElasticsearchAuditSink)(nil)

func NewElasticsearchAuditSink(es *elasticsearch.Client, index string) *ElasticsearchAuditSink {
	return &ElasticsearchAuditSink{es: es, index: index}
}

func (s *ElasticsearchAuditSink) Record(ctx context.Context, rec collections.DispatchRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	res, err := s.es.Index(
		s.index,
		bytes.NewReader(body),
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(auditDocumentID(rec)),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch index error: %s", res.Status())
	}
	return nil
}

// auditDocumentID makes a re-recorded attempt overwrite its earlier document.
func auditDocumentID(rec collections.DispatchRecord) string {
	return strings.Join([]string{rec.RunID, rec.RuleID, rec.DebtorID}, ":")
}
