package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the JWT claims issued by the identity provider. The subject is
// the user ID; the admin capability comes from the roles list in app
// metadata, never from a client-settable claim.
type Claims struct {
	jwt.RegisteredClaims

	Role        string      `json:"role"`
	Email       string      `json:"email,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata,omitempty"`
}

// AppMetadata is the server-controlled metadata block of the token
type AppMetadata struct {
	Roles []string `json:"roles,omitempty"`
}

// IsAdmin reports whether the token carries the admin role
func (c *Claims) IsAdmin() bool {
	for _, role := range c.AppMetadata.Roles {
		if role == "admin" {
			return true
		}
	}
	return false
}
