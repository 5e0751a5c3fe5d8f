// internal/workers/collections/set-enabled/models.go
package setenabled

import "context"

type Toggler interface {
	SetCollectionsEnabled(ctx context.Context, tenantID string, enabled bool) error
}

type Input struct {
	TenantID string `json:"tenantId"`
	Enabled  *bool  `json:"enabled"`
}

type Output struct {
	TenantID           string `json:"tenantId"`
	CollectionsEnabled bool   `json:"collectionsEnabled"`
}
