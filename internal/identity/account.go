// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

/*
Package identity implements the user account and access-control core.

It defines the Account entity and the logic for registration, credential
verification, session-token issuance, and the role-gated authorization applied
to every protected request.

# Architecture

This layer is the "Truth" of the system. The entity defined here has no
transport dependencies and encapsulates all business rules related to user
identity:

  - Store: Abstracted persistence contract (Postgres implementation).
  - Service: Orchestrates registration, login, and account lifecycle.
  - Gate: Resolves bearer tokens into live principals and enforces roles.
*/
package identity

import (
	"time"

	"github.com/quangtd/accountd/internal/platform/sec"
)

// # Domain Entities

// Account represents a durable user identity record.
//
// Username and email are each globally unique; email is stored lowercase.
// PasswordHash always holds a bcrypt hash, never plaintext, and is omitted
// from JSON output.
type Account struct {
	ID           string       `json:"id"`
	FullName     string       `json:"full_name"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	Role         sec.UserRole `json:"role"`
	AvatarURL    string       `json:"avatar_url,omitempty"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	LastLogin    *time.Time   `json:"last_login,omitempty"` // nil until the first successful login.
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"` // nil until the first mutation.
}

// # Field Identifiers

// Global field names for validation and identity mapping in the account domain.
const (
	FieldFullName        = "full_name"
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldRole            = "role"
	FieldAvatarURL       = "avatar_url"
	FieldIsActive        = "is_active"
	FieldIdentifier      = "identifier"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldAccountID       = "accountID"
	FieldQuery           = "q"
)
