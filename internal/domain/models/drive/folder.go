package drive

import "time"

// RootPath is the materialized path of every root-level folder.
const RootPath = "/"

// Folder is a node in the per-owner folder tree.
//
// Path is the materialized location prefix of the folder: "/" for root-level
// folders, otherwise parent.Path + parent.Name + "/". It is denormalized for
// fast subtree queries and kept consistent by explicit propagation on every
// structural change.
type Folder struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"owner_id"`
	ParentID    *string  `json:"parent_id,omitempty"` // nil = root level
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Description string   `json:"description,omitempty"`
	Color       string   `json:"color,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Tags        []string `json:"tags,omitempty"`

	// Incrementally maintained aggregates over live (non-trashed) children.
	// folderSize recomputation is the source of truth for drift repair.
	FileCount   int64 `json:"file_count"`
	FolderCount int64 `json:"folder_count"`
	TotalSize   int64 `json:"total_size"`

	IsTrash   bool `json:"is_trash,omitempty"`
	IsArchive bool `json:"is_archive,omitempty"`
	IsDefault bool `json:"is_default,omitempty"`

	SharedWith []Grant `json:"shared_with,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	TrashedAt *time.Time `json:"trashed_at,omitempty"`
}

// ResourceOwner implements SharedResource.
func (f *Folder) ResourceOwner() string { return f.OwnerID }

// ResourceGrants implements SharedResource.
func (f *Folder) ResourceGrants() []Grant { return f.SharedWith }

// ChildPrefix returns the materialized path carried by this folder's
// immediate children: Path + Name + "/".
func (f *Folder) ChildPrefix() string {
	return f.Path + f.Name + "/"
}

// NormalizeParentID collapses the legacy root sentinels to the canonical nil
// parent. Historic data uses NULL, "" and the literal "root" interchangeably;
// normalization happens here, on read and write, never per call site.
func NormalizeParentID(parentID *string) *string {
	if parentID == nil {
		return nil
	}
	if *parentID == "" || *parentID == "root" {
		return nil
	}
	return parentID
}

// Breadcrumb is one element of a root-first ancestor chain. The head of every
// chain is the synthetic root entry (nil ID, name "Root", path "/").
type Breadcrumb struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
	Path string  `json:"path"`
}

// SyntheticRoot returns the breadcrumb head representing the tree root.
func SyntheticRoot() Breadcrumb {
	return Breadcrumb{ID: nil, Name: "Root", Path: RootPath}
}
