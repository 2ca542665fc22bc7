package drive

import (
	"context"

	"skyvault/internal/domain/models/drive"
)

// CreateFolderRequest carries parameters for folder creation
type CreateFolderRequest struct {
	Principal   drive.Principal `json:"-"`
	ParentID    *string         `json:"parent_id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Color       string          `json:"color,omitempty"`
	Icon        string          `json:"icon,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

// UpdateFolderRequest carries optional metadata updates; nil fields are left
// unchanged
type UpdateFolderRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Color       *string  `json:"color,omitempty"`
	Icon        *string  `json:"icon,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ShareRequest upserts a sharing grant on a folder or file
type ShareRequest struct {
	GranteeID  string                `json:"grantee_id"`
	Permission drive.PermissionLevel `json:"permission"`
	Message    string                `json:"message,omitempty"`
}

// FolderService is the mutation engine for the folder tree
type FolderService interface {
	// CreateFolder creates a folder under the given parent (nil = root)
	CreateFolder(ctx context.Context, req *CreateFolderRequest) (*drive.Folder, error)

	// GetFolder retrieves a folder the principal can at least view
	GetFolder(ctx context.Context, p drive.Principal, id string) (*drive.Folder, error)

	// ListChildren lists the live immediate children of a folder
	// (nil = the principal's root level)
	ListChildren(ctx context.Context, p drive.Principal, folderID *string) ([]drive.Folder, error)

	// UpdateFolder renames a folder and/or updates its metadata
	UpdateFolder(ctx context.Context, p drive.Principal, id string, req *UpdateFolderRequest) (*drive.Folder, error)

	// MoveFolder re-parents a folder, rejecting cycles before any mutation,
	// then propagates materialized paths over the whole subtree
	MoveFolder(ctx context.Context, p drive.Principal, id string, newParentID *string) (*drive.Folder, error)

	// DeleteFolder soft-deletes into trash, or permanently destroys the
	// subtree bottom-up when permanent is true
	DeleteFolder(ctx context.Context, p drive.Principal, id string, permanent bool) error

	// RestoreFolder pulls a folder back out of trash, re-driving the same
	// shallow per-level cascade in reverse
	RestoreFolder(ctx context.Context, p drive.Principal, id string) error

	// ShareFolder upserts a grant; requires manage and rejects self-sharing
	ShareFolder(ctx context.Context, p drive.Principal, id string, req *ShareRequest) (*drive.Folder, error)

	// UnshareFolder removes a grantee's entry; requires manage
	UnshareFolder(ctx context.Context, p drive.Principal, id, granteeID string) (*drive.Folder, error)

	// CopyFolder duplicates a folder's metadata under a new parent. The copy
	// is a fresh entity: own identity, zeroed counters, no grants.
	CopyFolder(ctx context.Context, p drive.Principal, id string, newParentID *string) (*drive.Folder, error)

	// ListTrash lists the principal's trashed folders
	ListTrash(ctx context.Context, p drive.Principal) ([]drive.Folder, error)
}
