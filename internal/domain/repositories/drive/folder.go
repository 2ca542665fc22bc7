package drive

import (
	"context"

	"skyvault/internal/domain/models/drive"
)

// FolderRepository defines data access operations for folders
type FolderRepository interface {
	// Create creates a new folder
	Create(ctx context.Context, folder *drive.Folder) error

	// GetByID retrieves a folder by ID
	GetByID(ctx context.Context, id string) (*drive.Folder, error)

	// GetByIDForUpdate retrieves a folder and row-locks it for the duration
	// of the surrounding transaction, serializing racing structural mutations
	GetByIDForUpdate(ctx context.Context, id string) (*drive.Folder, error)

	// Update writes the folder's mutable fields (name, parent, path,
	// metadata, flags, grants)
	Update(ctx context.Context, folder *drive.Folder) error

	// UpdatePath rewrites only the materialized path
	UpdatePath(ctx context.Context, id, path string) error

	// SetTrash flips the trash flag and deletion timestamp
	SetTrash(ctx context.Context, id string, trashed bool) error

	// Delete permanently removes the folder row
	Delete(ctx context.Context, id string) error

	// ListChildren lists immediate child folders. For root-level listings
	// (parentID nil) the sibling set is scoped by owner.
	ListChildren(ctx context.Context, parentID *string, ownerID string, includeTrashed bool) ([]drive.Folder, error)

	// AdjustCounts atomically applies deltas to the folder's child aggregates
	AdjustCounts(ctx context.Context, id string, folderDelta, fileDelta, sizeDelta int64) error

	// SetCounts overwrites the folder's child aggregates with recomputed
	// values; used by drift repair only
	SetCounts(ctx context.Context, id string, folderCount, fileCount, totalSize int64) error

	// ListAllByOwner retrieves every folder owned by a user (flat list)
	ListAllByOwner(ctx context.Context, ownerID string) ([]drive.Folder, error)

	// Search returns non-trashed folders visible to the caller (owned or
	// granted) whose name, description or tags match the query
	Search(ctx context.Context, callerID, query string) ([]drive.Folder, error)
}
