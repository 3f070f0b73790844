// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
//
// Accountd carries exactly two static roles. Authorization checks are
// exact-match — there is no role hierarchy, and the user-only guard rejects
// admins as well.
type UserRole string

const (
	// Unrestricted account-management access
	RoleAdmin UserRole = "admin"

	// Default role for standard registered accounts
	RoleUser UserRole = "user"
)

// IsValid reports whether the role is one of the two known values.
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ParseRole normalizes a raw role string, falling back to [RoleUser] for
// empty input. Unknown values are returned as-is so validation layers can
// reject them explicitly.
func ParseRole(raw string) UserRole {
	if raw == "" {
		return RoleUser
	}
	return UserRole(raw)
}
