// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package identity

import (
	"context"

	"github.com/quangtd/accountd/internal/platform/sec"
	"github.com/quangtd/accountd/pkg/pagination"
)

// # Store Inputs

// NewAccount holds the field values for an account insert.
//
// The store stamps CreatedAt itself, leaves LastLogin null, and applies the
// bootstrap policy: the requested Role is overridden to admin when the store
// holds no accounts at the moment of insertion.
type NewAccount struct {
	FullName     string
	Username     string
	Email        string
	PasswordHash string
	Role         sec.UserRole
	AvatarURL    string
	IsActive     bool
}

// AccountChanges is a partial update set. Nil fields are left untouched.
type AccountChanges struct {
	FullName  *string
	Username  *string
	Email     *string
	Role      *sec.UserRole
	AvatarURL *string
}

// ListFilter narrows List and Count operations. Nil fields match everything.
type ListFilter struct {
	Role     *sec.UserRole
	IsActive *bool
}

// # Store Contract

// Store defines the persistence contract for account records.
//
// # Error Semantics
//
// Every operation returns a typed [apperr.AppError]:
//
//   - NOT_FOUND when no record matches.
//   - CONFLICT on a uniqueness violation.
//   - UNAVAILABLE when the liveness probe fails before the operation runs —
//     the store never conflates "unreachable" with "not found"; degrading
//     one into the other is a caller-side policy decision.
type Store interface {

	/*
		FindByEmail returns the account with the given email.
		The lookup is case-insensitive via lowercase normalization.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Account: Hydrated entity
		  - error: NOT_FOUND, UNAVAILABLE, or retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Account, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *Account: Hydrated entity
		  - error: NOT_FOUND, UNAVAILABLE, or retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*Account, error)

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUIDv7)

		Returns:
		  - *Account: Hydrated entity
		  - error: NOT_FOUND, UNAVAILABLE, or retrieval failures
	*/
	FindByID(context context.Context, id string) (*Account, error)

	/*
		FindByIdentifier resolves a login identifier, trying email first
		and falling back to username.

		Parameters:
		  - context: context.Context
		  - identifier: string (email or username)

		Returns:
		  - *Account: Hydrated entity
		  - error: NOT_FOUND, UNAVAILABLE, or retrieval failures
	*/
	FindByIdentifier(context context.Context, identifier string) (*Account, error)

	/*
		Create inserts a brand-new account and returns the stored record.

		The role column is computed atomically next to the insert: the very
		first account in an empty store is forced to admin regardless of the
		requested role. A unique-index violation yields CONFLICT.

		Parameters:
		  - context: context.Context
		  - input: NewAccount

		Returns:
		  - *Account: The freshly stored record as the database holds it
		  - error: CONFLICT, UNAVAILABLE, or persistence failures
	*/
	Create(context context.Context, input NewAccount) (*Account, error)

	/*
		Update applies a partial change set as a single atomic write and
		returns the updated record. When the change set touches username or
		email, uniqueness is re-checked excluding the record itself; the
		store's unique indexes remain the authoritative enforcement.
		The update timestamp is always stamped.

		Parameters:
		  - context: context.Context
		  - id: string
		  - changes: AccountChanges

		Returns:
		  - *Account: The updated record
		  - error: NOT_FOUND, CONFLICT, UNAVAILABLE, or persistence failures
	*/
	Update(context context.Context, id string, changes AccountChanges) (*Account, error)

	/*
		UpdateLastLogin stamps the last-login timestamp.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: NOT_FOUND, UNAVAILABLE, or persistence failures
	*/
	UpdateLastLogin(context context.Context, id string) error

	/*
		List returns accounts matching the filter, in creation order.

		Parameters:
		  - context: context.Context
		  - filter: ListFilter (role / active-status, nil fields match all)
		  - page: pagination.Params

		Returns:
		  - []Account: Matching page of records
		  - error: UNAVAILABLE or retrieval failures
	*/
	List(context context.Context, filter ListFilter, page pagination.Params) ([]Account, error)

	/*
		Count returns the number of accounts matching the filter.

		Parameters:
		  - context: context.Context
		  - filter: ListFilter

		Returns:
		  - int: Matching record count
		  - error: UNAVAILABLE or retrieval failures
	*/
	Count(context context.Context, filter ListFilter) (int, error)

	/*
		Search matches a case-insensitive substring against full name,
		username, or email (OR over fields of the same record).

		Parameters:
		  - context: context.Context
		  - term: string
		  - page: pagination.Params

		Returns:
		  - []Account: Matching page of records
		  - error: UNAVAILABLE or retrieval failures
	*/
	Search(context context.Context, term string, page pagination.Params) ([]Account, error)

	/*
		Deactivate clears the active flag, blocking future authentication.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: NOT_FOUND, UNAVAILABLE, or persistence failures
	*/
	Deactivate(context context.Context, id string) error

	/*
		Activate restores the active flag.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: NOT_FOUND, UNAVAILABLE, or persistence failures
	*/
	Activate(context context.Context, id string) error

	/*
		Delete permanently removes the record. No tombstone is kept.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: NOT_FOUND, UNAVAILABLE, or persistence failures
	*/
	Delete(context context.Context, id string) error

	/*
		ChangePasswordHash replaces only the password hash.

		Parameters:
		  - context: context.Context
		  - id: string
		  - newHash: string

		Returns:
		  - error: NOT_FOUND, UNAVAILABLE, or persistence failures
	*/
	ChangePasswordHash(context context.Context, id, newHash string) error
}
