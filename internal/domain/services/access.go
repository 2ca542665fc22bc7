package services

import (
	"skyvault/internal/domain/models/drive"
)

// AccessResolver evaluates whether a principal may perform an action on a
// shared resource (folder or file).
//
// Resolution order: admin capability bypasses everything; the resource owner
// satisfies any level; otherwise the caller's grant (if any) must be at or
// above the required level. Pure function of resource state and caller
// identity — no side effects.
type AccessResolver interface {
	// Check reports whether the principal holds the required level on the resource
	Check(resource drive.SharedResource, principal drive.Principal, required drive.PermissionLevel) bool

	// Require returns ErrForbidden when Check fails
	Require(resource drive.SharedResource, principal drive.Principal, required drive.PermissionLevel) error
}
