package storage

import (
	"context"
	"io"
	"time"

	"skyvault/internal/domain/models/drive"
)

// Area is a named region of the backing store. Quarantined objects are
// physically relocated out of the active area so a leaked active-area
// credential can never read them.
type Area string

const (
	AreaActive     Area = "active"
	AreaQuarantine Area = "quarantine"
)

// ObjectStore is the object-storage collaborator. Implementations are
// assumed to fail independently of database state; callers pair every
// status-changing call with a compensating action.
//
// All methods must respect context cancellation; callers invoke them under
// bounded timeouts.
type ObjectStore interface {
	// Put durably stores content and returns its locator
	Put(ctx context.Context, key string, body io.Reader, contentType string) (drive.StorageLocator, error)

	// Relocate moves an object into the target area and returns the new
	// locator. The source object is gone afterwards.
	Relocate(ctx context.Context, loc drive.StorageLocator, target Area) (drive.StorageLocator, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, loc drive.StorageLocator) error

	// PresignedGetURL issues a temporary read URL for the object
	PresignedGetURL(ctx context.Context, loc drive.StorageLocator, ttl time.Duration) (string, error)
}
