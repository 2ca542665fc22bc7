package drive

import (
	"context"

	"skyvault/internal/domain/models/drive"
)

// UsageReport is an owner's storage usage against their plan quota
type UsageReport struct {
	OwnerID     string `json:"owner_id"`
	Plan        string `json:"plan"`
	StorageUsed int64  `json:"storage_used"`
	QuotaBytes  int64  `json:"quota_bytes"`
}

// UsageService answers quota queries and plan changes
type UsageService interface {
	// Report returns the owner's usage and quota. Callers may read their own
	// report; reading another owner's requires the admin capability.
	Report(ctx context.Context, p drive.Principal, ownerID string) (*UsageReport, error)

	// SetPlan switches an owner to another quota plan. Admin only.
	SetPlan(ctx context.Context, p drive.Principal, ownerID, planID string) (*UsageReport, error)
}
