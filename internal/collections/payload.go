// internal/collections/payload.go
package collections

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// queuePayloadSchema is the contract with the downstream notification worker.
const queuePayloadSchema = `{
  "type": "object",
  "required": ["tenantId", "recipientPhone", "ruleId", "eventType", "params", "obligationIds"],
  "properties": {
    "tenantId":       {"type": "string", "minLength": 1},
    "recipientPhone": {"type": "string", "pattern": "^[0-9]{10,15}$"},
    "ruleId":         {"type": "string", "minLength": 1},
    "eventType":      {"type": "string", "enum": ["DUE_DATE", "CREATION"]},
    "templateKey":    {"type": "string"},
    "customMessage":  {"type": "string"},
    "referenceDate":  {"type": "string"},
    "obligationIds":  {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
    "params": {
      "type": "object",
      "required": ["amount", "dueDate", "count"],
      "properties": {
        "studentName":  {"type": "string"},
        "guardianName": {"type": "string"},
        "amount":       {"type": "string", "minLength": 1},
        "dueDate":      {"type": "string"},
        "paymentLink":  {"type": "string"},
        "count":        {"type": "integer", "minimum": 1}
      }
    }
  }
}`

var payloadSchemaLoader = gojsonschema.NewStringLoader(queuePayloadSchema)

// ValidatePayload checks a queue payload against the worker contract.
func ValidatePayload(p QueuePayload) error {
	result, err := gojsonschema.Validate(payloadSchemaLoader, gojsonschema.NewGoLoader(p))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("payload validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// QueueKey is the idempotency key of a queued group. A DUE_DATE reminder is
// keyed by debtor, so a member paid between two runs on the same day does not
// queue the rest again. CREATION batches differ by the obligations they carry.
func QueueKey(tenantID string, rule Rule, referenceDate string, group DebtorGroup) string {
	if rule.EventType == EventDueDate {
		return IdempotencyKey(tenantID, rule.ID, referenceDate, []string{"debtor:" + group.DebtorID})
	}
	return IdempotencyKey(tenantID, rule.ID, referenceDate, group.ObligationIDs())
}

// IdempotencyKey hashes tenant, rule, reference date and an unordered id set.
func IdempotencyKey(tenantID, ruleID, referenceDate string, obligationIDs []string) string {
	ids := append([]string(nil), obligationIDs...)
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(tenantID))
	h.Write([]byte{'|'})
	h.Write([]byte(ruleID))
	h.Write([]byte{'|'})
	h.Write([]byte(referenceDate))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.Join(ids, ",")))
	return hex.EncodeToString(h.Sum(nil))
}
