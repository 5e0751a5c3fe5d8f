// internal/workers/collections/trigger-reminder/validation.go
package triggerreminder

import "collections-reminders/internal/common/validation"

func GetInputSchema(maxObligations int) validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"tenantId", "obligationIds"},
		Properties: map[string]validation.Property{
			"tenantId": {
				Type:        "string",
				Description: "Tenant that owns the installments",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(64),
			},
			"obligationIds": {
				Type:        "array",
				Description: "Ids of the installments just created",
				MaxItems:    validation.IntPtr(maxObligations),
				Items: &validation.Property{
					Type:      "string",
					MinLength: validation.IntPtr(1),
				},
			},
		},
		AdditionalProperties: true,
	}
}
