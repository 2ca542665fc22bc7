package drive

import "time"

// FileStatus is the lifecycle state of a file.
//
// Transitions: uploading → processing → active ⇄ quarantined;
// active|quarantined → deleted (terminal). Deleted doubles as the file's
// trash state; there is no separate trash flag for files.
type FileStatus string

const (
	StatusUploading   FileStatus = "uploading"
	StatusProcessing  FileStatus = "processing"
	StatusActive      FileStatus = "active"
	StatusQuarantined FileStatus = "quarantined"
	StatusDeleted     FileStatus = "deleted"
)

// StorageLocator addresses the raw bytes held by the object-storage
// collaborator. Opaque to the core beyond equality and hand-off.
type StorageLocator struct {
	Provider string `json:"provider"`
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	URL      string `json:"url,omitempty"`
	ETag     string `json:"etag,omitempty"`
}

// RiskAssessment is the advisory verdict from the scanning collaborator.
type RiskAssessment struct {
	Score      int       `json:"score"` // 0..100
	Level      string    `json:"level"` // low, medium, high
	Malicious  bool      `json:"malicious"`
	AssessedAt time.Time `json:"assessed_at"`
}

// HighRisk reports whether the verdict blocks activation.
func (r *RiskAssessment) HighRisk() bool {
	return r.Malicious || r.Level == "high"
}

// FileVersion is one append-only history entry capturing a file's previous
// content before a replacement. Entries are never mutated or removed.
type FileVersion struct {
	Version    int       `json:"version"`
	StorageKey string    `json:"storage_key"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// File is a stored object's metadata record.
type File struct {
	ID           string  `json:"id"`
	OwnerID      string  `json:"owner_id"`
	FolderID     *string `json:"folder_id,omitempty"` // nil = top level
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	Size         int64   `json:"size"`
	MimeType     string  `json:"mime_type"`

	Status         FileStatus      `json:"status"`
	CurrentVersion int             `json:"current_version"`
	Storage        StorageLocator  `json:"storage"`
	Risk           *RiskAssessment `json:"risk,omitempty"`

	SharedWith []Grant `json:"shared_with,omitempty"`

	DownloadCount  int64      `json:"download_count"`
	LastDownloadAt *time.Time `json:"last_download_at,omitempty"`

	QuarantinedAt *time.Time `json:"quarantined_at,omitempty"`
	RestoredAt    *time.Time `json:"restored_at,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResourceOwner implements SharedResource.
func (f *File) ResourceOwner() string { return f.OwnerID }

// ResourceGrants implements SharedResource.
func (f *File) ResourceGrants() []Grant { return f.SharedWith }

// Live reports whether the file counts toward folder aggregates and quota.
func (f *File) Live() bool {
	return f.Status != StatusDeleted
}

// Downloadable reports whether a read locator may be issued for the file.
func (f *File) Downloadable() bool {
	return f.Status == StatusActive
}
