package drive

import "time"

// PermissionLevel is an ordered access level attached to a sharing grant.
// The ordering view < edit < manage is defined by the ordinal, not by
// convention over a list.
type PermissionLevel string

const (
	PermissionView   PermissionLevel = "view"
	PermissionEdit   PermissionLevel = "edit"
	PermissionManage PermissionLevel = "manage"
)

// permissionOrdinals defines the fixed comparison order of permission levels.
var permissionOrdinals = map[PermissionLevel]int{
	PermissionView:   0,
	PermissionEdit:   1,
	PermissionManage: 2,
}

// Valid reports whether the level is one of the defined permission levels.
func (p PermissionLevel) Valid() bool {
	_, ok := permissionOrdinals[p]
	return ok
}

// AtLeast reports whether the level satisfies the required level.
// An undefined level never satisfies anything.
func (p PermissionLevel) AtLeast(required PermissionLevel) bool {
	have, ok := permissionOrdinals[p]
	if !ok {
		return false
	}
	want, ok := permissionOrdinals[required]
	if !ok {
		return false
	}
	return have >= want
}

// Grant is a sharing record attached to a folder or file. A grant is owned
// by the resource it is attached to and has no independent lifecycle.
type Grant struct {
	UserID     string          `json:"user_id"`
	Permission PermissionLevel `json:"permission"`
	GrantedBy  string          `json:"granted_by"`
	GrantedAt  time.Time       `json:"granted_at"`
	Message    string          `json:"message,omitempty"`
}

// SharedResource is anything that carries ownership and a grant list.
// Folders and files both implement it so the access resolver is written once.
type SharedResource interface {
	ResourceOwner() string
	ResourceGrants() []Grant
}

// Principal identifies the caller of an operation. Identity is supplied by
// the authentication collaborator; the core never issues credentials.
type Principal struct {
	UserID string
	Admin  bool
}
