// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/quangtd/accountd/internal/platform/apperr"
	"github.com/quangtd/accountd/internal/platform/sec"
	"github.com/quangtd/accountd/pkg/pagination"
	"github.com/quangtd/accountd/pkg/pointer"
)

// # Service Inputs

// RegisterInput carries the fields for public self-registration.
// The role is never caller-controlled on this path.
type RegisterInput struct {
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatar_url"`
}

// LoginInput carries a flexible identifier (email or username) plus password.
type LoginInput struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// AdminCreateInput extends registration with the fields only admins may set.
type AdminCreateInput struct {
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
	IsActive  *bool  `json:"is_active"`
}

// UpdateInput is the partial-update payload. Nil fields are left untouched.
type UpdateInput struct {
	FullName  *string `json:"full_name"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
	Role      *string `json:"role"`
}

// ChangePasswordInput requires proof of the current password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   *Account  `json:"user"`
}

// TokenIssuer is the slice of the token codec the service needs.
type TokenIssuer interface {
	Issue(subject, role string, timeToLive time.Duration) (string, error)
}

// # Service

// Service orchestrates account lifecycle, credential verification, and
// session issuance on top of the [Store].
//
// # Availability Policy
//
// When strict mode is off, single-record read paths degrade a store outage
// (UNAVAILABLE) into NOT_FOUND and collection reads into an empty page, so
// browsing keeps working while the store is down. Every write path, and
// login, always surfaces the outage — silently dropping a mutation or
// authenticating blind is never acceptable.
type Service struct {
	store    Store
	throttle LoginThrottle
	issuer   TokenIssuer
	tokenTTL time.Duration
	strict   bool
	logger   *slog.Logger
}

// NewService wires the account service with its collaborators.
func NewService(store Store, throttle LoginThrottle, issuer TokenIssuer, tokenTTL time.Duration, strict bool, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		throttle: throttle,
		issuer:   issuer,
		tokenTTL: tokenTTL,
		strict:   strict,
		logger:   logger,
	}
}

// # Registration & Login

/*
Register creates a standard account from a public self-registration.

Description: Pre-checks email and username for friendlier conflict messages,
then inserts. The pre-checks are advisory; the store's unique indexes catch
the race and still yield CONFLICT. The requested role is always "user" — the
store's bootstrap rule promotes the very first account to admin on its own.

Parameters:
  - context: context.Context
  - input: RegisterInput (already validated at the handler boundary)

Returns:
  - *Account: The stored account
  - error: CONFLICT, UNAVAILABLE, or persistence failures
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Account, error) {
	if err := service.checkFree(context, input.Email, input.Username); err != nil {
		return nil, err
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	account, err := service.store.Create(context, NewAccount{
		FullName:     input.FullName,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         sec.RoleUser,
		AvatarURL:    input.AvatarURL,
		IsActive:     true,
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("account registered",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)

	return account, nil
}

// checkFree runs the advisory uniqueness pre-checks for a new account.
// UNAVAILABLE propagates as-is so registration never degrades into a
// false "available".
func (service *Service) checkFree(context context.Context, email, username string) error {
	if _, err := service.store.FindByEmail(context, email); err == nil {
		return apperr.Conflict("Account with this email already exists")
	} else if !apperr.IsNotFound(err) {
		return err
	}

	if _, err := service.store.FindByUsername(context, username); err == nil {
		return apperr.Conflict("Account with this username already exists")
	} else if !apperr.IsNotFound(err) {
		return err
	}

	return nil
}

/*
Login verifies credentials and issues a session token.

Description: Lookup misses and password mismatches collapse into one generic
UNAUTHORIZED so callers cannot probe which identifiers exist. The throttle
is consulted first and fed on every failed attempt. A deactivated account
fails with FORBIDDEN even when the password is correct. The last-login stamp
is best effort and never fails the login.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *Session: Bearer token, expiry, and the authenticated account
  - error: RATE_LIMITED, UNAUTHORIZED, FORBIDDEN, UNAVAILABLE
*/
func (service *Service) Login(context context.Context, input LoginInput) (*Session, error) {
	if allowed, retryAfter := service.throttle.Allow(context, input.Identifier); !allowed {
		return nil, apperr.RateLimited(retryAfter)
	}

	account, err := service.store.FindByIdentifier(context, input.Identifier)
	if err != nil {
		if apperr.IsNotFound(err) {
			service.throttle.RecordFailure(context, input.Identifier)
			return nil, apperr.Unauthorized("Incorrect email/username or password")
		}
		return nil, err
	}

	if !sec.CheckPasswordHash(input.Password, account.PasswordHash) {
		service.throttle.RecordFailure(context, input.Identifier)
		return nil, apperr.Unauthorized("Incorrect email/username or password")
	}

	if !account.IsActive {
		return nil, apperr.Forbidden("Account deactivated. Please contact administrator.")
	}

	service.throttle.Clear(context, input.Identifier)

	if err := service.store.UpdateLastLogin(context, account.ID); err != nil {
		service.logger.Warn("failed to stamp last login",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
	} else {
		now := time.Now()
		account.LastLogin = &now
	}

	token, err := service.issuer.Issue(account.Email, string(account.Role), service.tokenTTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	service.logger.Info("login succeeded",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)

	return &Session{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: time.Now().Add(service.tokenTTL),
		Account:   account,
	}, nil
}

// # Account Lifecycle

/*
AdminCreate creates an account on behalf of an administrator.

Description: Unlike Register, the caller chooses role and active status.
The bootstrap rule still applies if the store happens to be empty.

Parameters:
  - context: context.Context
  - input: AdminCreateInput (already validated at the handler boundary)

Returns:
  - *Account: The stored account
  - error: CONFLICT, UNAVAILABLE, or persistence failures
*/
func (service *Service) AdminCreate(context context.Context, input AdminCreateInput) (*Account, error) {
	if err := service.checkFree(context, input.Email, input.Username); err != nil {
		return nil, err
	}

	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	isActive := pointer.Fallback(input.IsActive, true)

	account, err := service.store.Create(context, NewAccount{
		FullName:     input.FullName,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         sec.ParseRole(input.Role),
		AvatarURL:    input.AvatarURL,
		IsActive:     isActive,
	})
	if err != nil {
		return nil, err
	}

	service.logger.Info("account created by admin",
		slog.String("account_id", account.ID),
		slog.String("role", string(account.Role)),
	)

	return account, nil
}

/*
GetAccount returns a single account by ID.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *Account: Hydrated account
  - error: NOT_FOUND, UNAVAILABLE (strict mode only), or retrieval failures
*/
func (service *Service) GetAccount(context context.Context, id string) (*Account, error) {
	account, err := service.store.FindByID(context, id)
	if err != nil {
		return nil, service.degradeRead(err)
	}
	return account, nil
}

/*
UpdateAccount applies a partial update to an account.

Description: A role change is parsed and checked here; all other fields pass
through to the store's atomic COALESCE update.

Parameters:
  - context: context.Context
  - id: string
  - input: UpdateInput

Returns:
  - *Account: The updated account
  - error: NOT_FOUND, CONFLICT, VALIDATION_ERROR, UNAVAILABLE
*/
func (service *Service) UpdateAccount(context context.Context, id string, input UpdateInput) (*Account, error) {
	changes := AccountChanges{
		FullName:  input.FullName,
		Username:  input.Username,
		Email:     input.Email,
		AvatarURL: input.AvatarURL,
	}

	if input.Role != nil {
		role := sec.ParseRole(*input.Role)
		if !role.IsValid() {
			return nil, apperr.ValidationError("Validation failed", apperr.FieldError{
				Field:   FieldRole,
				Message: "Unknown role",
			})
		}
		changes.Role = &role
	}

	account, err := service.store.Update(context, id, changes)
	if err != nil {
		return nil, err
	}

	service.logger.Info("account updated", slog.String("account_id", account.ID))

	return account, nil
}

/*
ChangePassword rotates an account's password after verifying the current one.

Parameters:
  - context: context.Context
  - id: string
  - input: ChangePasswordInput

Returns:
  - error: UNAUTHORIZED (current password wrong), NOT_FOUND, UNAVAILABLE
*/
func (service *Service) ChangePassword(context context.Context, id string, input ChangePasswordInput) error {
	account, err := service.store.FindByID(context, id)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(input.CurrentPassword, account.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	newHash, err := sec.HashPassword(input.NewPassword)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := service.store.ChangePasswordHash(context, id, newHash); err != nil {
		return err
	}

	service.logger.Info("password changed", slog.String("account_id", id))

	return nil
}

/*
Deactivate blocks an account from authenticating. Existing tokens die at the
next gate check because the gate re-reads the live record.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: NOT_FOUND, UNAVAILABLE, or persistence failures
*/
func (service *Service) Deactivate(context context.Context, id string) error {
	if err := service.store.Deactivate(context, id); err != nil {
		return err
	}
	service.logger.Info("account deactivated", slog.String("account_id", id))
	return nil
}

/*
Activate restores a deactivated account.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: NOT_FOUND, UNAVAILABLE, or persistence failures
*/
func (service *Service) Activate(context context.Context, id string) error {
	if err := service.store.Activate(context, id); err != nil {
		return err
	}
	service.logger.Info("account activated", slog.String("account_id", id))
	return nil
}

/*
Delete permanently removes an account.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: NOT_FOUND, UNAVAILABLE, or persistence failures
*/
func (service *Service) Delete(context context.Context, id string) error {
	if err := service.store.Delete(context, id); err != nil {
		return err
	}
	service.logger.Info("account deleted", slog.String("account_id", id))
	return nil
}

// # Queries

/*
List returns a page of accounts with pagination metadata.

Parameters:
  - context: context.Context
  - filter: ListFilter
  - page: pagination.Params

Returns:
  - []Account: Matching page (empty, never nil)
  - *pagination.Meta: Total count and page bounds
  - error: UNAVAILABLE (strict mode only) or retrieval failures
*/
func (service *Service) List(context context.Context, filter ListFilter, page pagination.Params) ([]Account, *pagination.Meta, error) {
	total, err := service.store.Count(context, filter)
	if err != nil {
		return service.degradeList(err, page)
	}

	accounts, err := service.store.List(context, filter, page)
	if err != nil {
		return service.degradeList(err, page)
	}

	meta := pagination.NewMeta(page.Page, page.Limit, total)
	return accounts, &meta, nil
}

/*
Search returns a page of accounts matching a substring term.

Parameters:
  - context: context.Context
  - term: string
  - page: pagination.Params

Returns:
  - []Account: Matching page (empty, never nil)
  - error: UNAVAILABLE (strict mode only) or retrieval failures
*/
func (service *Service) Search(context context.Context, term string, page pagination.Params) ([]Account, error) {
	accounts, err := service.store.Search(context, term, page)
	if err != nil {
		if apperr.IsUnavailable(err) && !service.strict {
			service.logDegrade(err)
			return []Account{}, nil
		}
		return nil, err
	}
	return accounts, nil
}

// degradeRead maps a store outage on a single-record read to NOT_FOUND when
// strict mode is off. All other errors pass through untouched.
func (service *Service) degradeRead(err error) error {
	if apperr.IsUnavailable(err) && !service.strict {
		service.logDegrade(err)
		return apperr.NotFound("Account")
	}
	return err
}

// degradeList maps a store outage on a collection read to an empty page when
// strict mode is off.
func (service *Service) degradeList(err error, page pagination.Params) ([]Account, *pagination.Meta, error) {
	if apperr.IsUnavailable(err) && !service.strict {
		service.logDegrade(err)
		meta := pagination.NewMeta(page.Page, page.Limit, 0)
		return []Account{}, &meta, nil
	}
	return nil, nil, err
}

// logDegrade records that an outage was masked, so the behavior is visible
// in logs even though clients see an ordinary empty result.
func (service *Service) logDegrade(err error) {
	service.logger.Warn("store unavailable, degrading read to absent result",
		slog.String("error", err.Error()),
	)
}
