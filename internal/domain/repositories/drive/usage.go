package drive

import (
	"context"

	"skyvault/internal/domain/models/drive"
)

// UsageRepository tracks per-owner aggregate storage usage.
//
// Add must be implemented as an atomic in-database increment, never
// read-modify-write at the application layer: the counter is mutated by many
// concurrent uploads and deletes.
type UsageRepository interface {
	// Get retrieves an owner's usage record, creating a default row on first
	// touch
	Get(ctx context.Context, ownerID string) (*drive.Usage, error)

	// Add atomically applies a delta to the owner's storage-used counter
	Add(ctx context.Context, ownerID string, delta int64) error

	// SetPlan sets the owner's quota plan
	SetPlan(ctx context.Context, ownerID, plan string) error

	// Recompute recalculates storage used from live file rows, stores the
	// result and returns it. Safe to re-run; this is the drift repair path.
	Recompute(ctx context.Context, ownerID string) (int64, error)
}
