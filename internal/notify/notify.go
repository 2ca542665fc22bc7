package notify

import "context"

// Event names emitted by the core.
const (
	EventShareGranted    = "share.granted"
	EventShareRevoked    = "share.revoked"
	EventFileQuarantined = "file.quarantined"
	EventFileRestored    = "file.restored"
	EventFolderDeleted   = "folder.deleted"
)

// Notification is one outbound event.
type Notification struct {
	Event       string            `json:"event"`
	RecipientID string            `json:"recipient_id"`
	ActorID     string            `json:"actor_id"`
	Detail      map[string]string `json:"detail,omitempty"`
}

// Notifier is the outbound notification collaborator. Calls are
// fire-and-forget: a delivery failure must never roll back the mutation that
// triggered it, so Notify returns nothing.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
