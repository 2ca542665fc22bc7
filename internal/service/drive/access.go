package drive

import (
	"fmt"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	"skyvault/internal/domain/services"
)

type accessResolver struct{}

// NewAccessResolver creates the permission resolver shared by folders and
// files. It is stateless: the decision is a pure function of resource state
// and caller identity.
func NewAccessResolver() services.AccessResolver {
	return &accessResolver{}
}

// Check reports whether the principal holds the required level on the
// resource. Admin capability bypasses the grant model entirely; it is a
// distinct capability, not a permission level.
func (a *accessResolver) Check(resource models.SharedResource, p models.Principal, required models.PermissionLevel) bool {
	if p.Admin {
		return true
	}
	if resource.ResourceOwner() == p.UserID {
		return true
	}
	for _, grant := range resource.ResourceGrants() {
		if grant.UserID == p.UserID {
			return grant.Permission.AtLeast(required)
		}
	}
	return false
}

// Require returns ErrForbidden when Check fails
func (a *accessResolver) Require(resource models.SharedResource, p models.Principal, required models.PermissionLevel) error {
	if a.Check(resource, p, required) {
		return nil
	}
	return &domain.ForbiddenError{
		Message: fmt.Sprintf("requires %s permission", required),
	}
}
