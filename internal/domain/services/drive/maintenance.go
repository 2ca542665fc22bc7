package drive

import (
	"context"

	"skyvault/internal/domain/models/drive"
)

// RepairReport summarizes one maintenance pass
type RepairReport struct {
	OrphanedFolders  []string `json:"orphaned_folders"`
	ResumedCascades  []string `json:"resumed_cascades"`
	RepairedFolders  []string `json:"repaired_folders"`
	RecomputedUsage  int64    `json:"recomputed_usage"`
	UsageDriftBefore int64    `json:"usage_drift_before"`
}

// MaintenanceService owns the explicitly idempotent repair operations. These
// are not part of normal request handling and are always safe to re-run.
type MaintenanceService interface {
	// FolderSize recomputes a folder's recursive live size from source
	// records, independent of the incremental total_size counter
	FolderSize(ctx context.Context, p drive.Principal, folderID string) (int64, error)

	// CheckFolderConsistency compares incremental counters against
	// recomputed truth and returns ErrInconsistentState on drift
	CheckFolderConsistency(ctx context.Context, p drive.Principal, folderID string) error

	// RepairFolderCounts rewrites a folder's counters from recomputed truth
	RepairFolderCounts(ctx context.Context, p drive.Principal, folderID string) (*drive.Folder, error)

	// RecomputeUsage rebuilds the owner's storage-used counter from live
	// file rows and returns the fresh value
	RecomputeUsage(ctx context.Context, p drive.Principal, ownerID string) (int64, error)

	// Repair scans the principal's tree for orphaned folders and
	// half-applied trash cascades and re-drives them
	Repair(ctx context.Context, p drive.Principal) (*RepairReport, error)
}
