package drive

import (
	"context"

	"skyvault/internal/domain/models/drive"
)

// FileRepository defines data access operations for files and their
// append-only version history
type FileRepository interface {
	// Create creates a new file record
	Create(ctx context.Context, file *drive.File) error

	// GetByID retrieves a file by ID
	GetByID(ctx context.Context, id string) (*drive.File, error)

	// GetByIDForUpdate retrieves a file and row-locks it for the duration of
	// the surrounding transaction
	GetByIDForUpdate(ctx context.Context, id string) (*drive.File, error)

	// Update writes the file's mutable fields (name, folder, size, mime type,
	// status, locator, risk, grants, timestamps, current version)
	Update(ctx context.Context, file *drive.File) error

	// Delete permanently removes the file row and its version history
	Delete(ctx context.Context, id string) error

	// ListByFolder lists files in a folder. For top-level listings
	// (folderID nil) the set is scoped by owner.
	ListByFolder(ctx context.Context, folderID *string, ownerID string, includeDeleted bool) ([]drive.File, error)

	// AppendVersion appends one immutable history entry. Appending a version
	// number that already exists for the file is a conflict.
	AppendVersion(ctx context.Context, fileID string, version *drive.FileVersion) error

	// ListVersions returns the file's history ordered by version ascending
	ListVersions(ctx context.Context, fileID string) ([]drive.FileVersion, error)

	// GetVersion returns one history entry
	GetVersion(ctx context.Context, fileID string, version int) (*drive.FileVersion, error)

	// RecordDownload atomically bumps the download counter
	RecordDownload(ctx context.Context, id string) error

	// Search returns live files visible to the caller (owned or granted)
	// whose name matches the query
	Search(ctx context.Context, callerID, query string) ([]drive.File, error)

	// SearchInFolders returns live files in the given folders whose name
	// matches the query
	SearchInFolders(ctx context.Context, folderIDs []string, query string) ([]drive.File, error)
}
