// internal/workers/collections/run-sweep/validation.go
package runsweep

import "collections-reminders/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"referenceDate": {
				Type:        "string",
				Description: "Sweep reference date (YYYY-MM-DD), defaults to today",
				Pattern:     validation.StringPtr(`^\d{4}-\d{2}-\d{2}$`),
			},
		},
		AdditionalProperties: true,
	}
}
