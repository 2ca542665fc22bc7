package drive

import "time"

// Usage is the per-owner aggregate storage counter used for quota
// enforcement at upload time. The counter is advisory: it is maintained
// incrementally by the file lifecycle and reconciled by an independent
// recomputation pass, since incremental counters can drift under partial
// failures.
type Usage struct {
	OwnerID     string    `json:"owner_id"`
	StorageUsed int64     `json:"storage_used"`
	Plan        string    `json:"plan"`
	UpdatedAt   time.Time `json:"updated_at"`
}
