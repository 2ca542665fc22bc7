package drive

import "time"

// FolderTreeNode is a folder with its nested children, used by the
// folderTree aggregation.
type FolderTreeNode struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	ParentID  *string           `json:"parent_id,omitempty"`
	Path      string            `json:"path"`
	CreatedAt time.Time         `json:"created_at"`
	Folders   []*FolderTreeNode `json:"folders"`
	Files     []FileTreeNode    `json:"files"`
}

// FileTreeNode is the file metadata carried in a tree response.
type FileTreeNode struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	FolderID  *string    `json:"folder_id,omitempty"`
	Size      int64      `json:"size"`
	MimeType  string     `json:"mime_type"`
	Status    FileStatus `json:"status"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Tree is the root of a folderTree response.
type Tree struct {
	Folders []*FolderTreeNode `json:"folders"`
	Files   []FileTreeNode    `json:"files"`
}
