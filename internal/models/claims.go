package models

import "github.com/golang-jwt/jwt/v5"

// RoleAdmin is the only role issued by the login endpoint.
const RoleAdmin = "admin"

// AdminClaims are the JWT claims carried by admin bearer tokens.
type AdminClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// IsAdmin reports whether the claims grant access to the admin API.
func (c *AdminClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
