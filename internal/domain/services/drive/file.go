package drive

import (
	"context"
	"time"

	"skyvault/internal/domain/models/drive"
)

// CreateFileRequest initiates an upload. The record is created in the
// uploading state; the raw bytes travel through the storage collaborator and
// completion is reported via CompleteUpload.
type CreateFileRequest struct {
	Principal drive.Principal `json:"-"`
	FolderID  *string         `json:"folder_id,omitempty"`
	Name      string          `json:"name"`
	Size      int64           `json:"size"`
	MimeType  string          `json:"mime_type"`
}

// UploadResult reports durably stored content back to the lifecycle manager
type UploadResult struct {
	Locator  drive.StorageLocator `json:"locator"`
	Size     int64                `json:"size"`
	MimeType string               `json:"mime_type"`
}

// FileService drives the file lifecycle: upload, risk assessment,
// quarantine/restore, versioning, deletion
type FileService interface {
	// CreateFile reserves an uploading record after permission, name and
	// quota checks. No storage interaction happens here.
	CreateFile(ctx context.Context, req *CreateFileRequest) (*drive.File, error)

	// CompleteUpload activates a file once its bytes are durably stored.
	// The risk collaborator is consulted first: a malicious or high-risk
	// verdict (or an unavailable scanner) quarantines the file before it is
	// ever exposed. A failure after the provisional record was created
	// removes the record rather than leaving it uploading forever.
	CompleteUpload(ctx context.Context, p drive.Principal, fileID string, res *UploadResult) (*drive.File, error)

	// GetFile retrieves a file the principal can at least view
	GetFile(ctx context.Context, p drive.Principal, id string) (*drive.File, error)

	// RenameFile renames a file, re-checking sibling uniqueness
	RenameFile(ctx context.Context, p drive.Principal, id, newName string) (*drive.File, error)

	// MoveFile updates the file's folder reference and both folders' counts
	MoveFile(ctx context.Context, p drive.Principal, id string, newFolderID *string) (*drive.File, error)

	// DeleteFile marks the file deleted (trash-equivalent) or permanently
	// destroys record, history and stored object. Permanent deletion is
	// idempotent: deleting an already-gone id is a no-op.
	DeleteFile(ctx context.Context, p drive.Principal, id string, permanent bool) error

	// ShareFile upserts a grant; requires manage and rejects self-sharing
	ShareFile(ctx context.Context, p drive.Principal, id string, req *ShareRequest) (*drive.File, error)

	// UnshareFile removes a grantee's entry; requires manage
	UnshareFile(ctx context.Context, p drive.Principal, id, granteeID string) (*drive.File, error)

	// CopyFile duplicates metadata and content reference into a new folder.
	// The copy starts a fresh version history and carries no grants.
	CopyFile(ctx context.Context, p drive.Principal, id string, newFolderID *string) (*drive.File, error)

	// Quarantine relocates the stored object into the quarantine area and
	// only then flips status; a failed relocation leaves status untouched.
	// Allowed only from active; a no-op when already quarantined.
	Quarantine(ctx context.Context, p drive.Principal, id, reason string) (*drive.File, error)

	// Restore is the inverse of Quarantine, with the same compensating-pair
	// discipline. Allowed only from quarantined.
	Restore(ctx context.Context, p drive.Principal, id, reason string) (*drive.File, error)

	// ReplaceContent uploads new content over an existing file: the previous
	// locator is appended to history first, then the version increments and
	// the new locator applies
	ReplaceContent(ctx context.Context, p drive.Principal, id string, res *UploadResult) (*drive.File, error)

	// RestoreVersion makes a historical version the active content. The
	// current content is pushed into history first: restoring is itself a
	// version-creating event, never a destructive rollback.
	RestoreVersion(ctx context.Context, p drive.Principal, id string, version int) (*drive.File, error)

	// ListVersions returns the append-only history, oldest first
	ListVersions(ctx context.Context, p drive.Principal, id string) ([]drive.FileVersion, error)

	// DownloadURL issues a temporary read locator and records the download.
	// Refused for anything but active files.
	DownloadURL(ctx context.Context, p drive.Principal, id string, ttl time.Duration) (string, error)
}
