// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package identity_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtd/accountd/internal/identity"
	"github.com/quangtd/accountd/internal/platform/apperr"
	"github.com/quangtd/accountd/internal/platform/sec"
	"github.com/quangtd/accountd/pkg/pagination"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, store identity.Store, strict bool) *identity.Service {
	t.Helper()

	codec, err := sec.NewTokenCodec("service-test-secret", "accountd")
	require.NoError(t, err)

	return identity.NewService(store, identity.NoopLoginThrottle{}, codec, time.Hour, strict, testLogger())
}

func register(t *testing.T, service *identity.Service, username, email string) *identity.Account {
	t.Helper()

	account, err := service.Register(context.Background(), identity.RegisterInput{
		FullName: "Test Person",
		Username: username,
		Email:    email,
		Password: "password-123",
	})
	require.NoError(t, err)
	return account
}

/*
TestService_Register_BootstrapAdmin verifies that the very first account is
promoted to admin and every later one stays a standard user.
*/
func TestService_Register_BootstrapAdmin(t *testing.T) {
	service := newTestService(t, newFakeStore(), false)

	first := register(t, service, "first", "first@example.com")
	assert.Equal(t, sec.RoleAdmin, first.Role)
	assert.True(t, first.IsActive)

	second := register(t, service, "second", "second@example.com")
	assert.Equal(t, sec.RoleUser, second.Role)
}

/*
TestService_Register_EmailConflict verifies the case-insensitive email
uniqueness rule.
*/
func TestService_Register_EmailConflict(t *testing.T) {
	service := newTestService(t, newFakeStore(), false)
	register(t, service, "taken", "taken@example.com")

	_, err := service.Register(context.Background(), identity.RegisterInput{
		FullName: "Other Person",
		Username: "other",
		Email:    "TAKEN@Example.Com",
		Password: "password-123",
	})

	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

/*
TestService_Register_UsernameConflict verifies username uniqueness.
*/
func TestService_Register_UsernameConflict(t *testing.T) {
	service := newTestService(t, newFakeStore(), false)
	register(t, service, "taken", "one@example.com")

	_, err := service.Register(context.Background(), identity.RegisterInput{
		FullName: "Other Person",
		Username: "taken",
		Email:    "two@example.com",
		Password: "password-123",
	})

	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

/*
TestService_Login verifies the full credential flow: email login, username
login, session shape, and last-login stamping.
*/
func TestService_Login(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, false)
	account := register(t, service, "loginuser", "login@example.com")

	// 1. Login by email
	session, err := service.Login(context.Background(), identity.LoginInput{
		Identifier: "login@example.com",
		Password:   "password-123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "bearer", session.TokenType)
	assert.True(t, session.ExpiresAt.After(time.Now()))
	assert.Equal(t, account.ID, session.Account.ID)
	assert.NotNil(t, session.Account.LastLogin)

	// 2. Login by username
	session, err = service.Login(context.Background(), identity.LoginInput{
		Identifier: "loginuser",
		Password:   "password-123",
	})
	require.NoError(t, err)
	assert.Equal(t, account.ID, session.Account.ID)
}

/*
TestService_Login_GenericFailure verifies that an unknown identifier and a
wrong password produce the identical error, so callers cannot tell which
identifiers exist.
*/
func TestService_Login_GenericFailure(t *testing.T) {
	service := newTestService(t, newFakeStore(), false)
	register(t, service, "known", "known@example.com")

	_, errUnknown := service.Login(context.Background(), identity.LoginInput{
		Identifier: "ghost@example.com",
		Password:   "password-123",
	})
	_, errWrongPassword := service.Login(context.Background(), identity.LoginInput{
		Identifier: "known@example.com",
		Password:   "not-the-password",
	})

	require.Error(t, errUnknown)
	require.Error(t, errWrongPassword)
	assert.Equal(t, errUnknown.Error(), errWrongPassword.Error())

	ae := apperr.As(errUnknown)
	require.NotNil(t, ae)
	assert.Equal(t, "UNAUTHORIZED", ae.Code)
}

/*
TestService_Login_Deactivated verifies that a correct password on a disabled
account yields 403, not 401.
*/
func TestService_Login_Deactivated(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, false)
	account := register(t, service, "disabled", "disabled@example.com")

	require.NoError(t, service.Deactivate(context.Background(), account.ID))

	_, err := service.Login(context.Background(), identity.LoginInput{
		Identifier: "disabled@example.com",
		Password:   "password-123",
	})

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "FORBIDDEN", ae.Code)
	assert.Equal(t, "Account deactivated. Please contact administrator.", ae.Message)
}

/*
TestService_Login_Throttled verifies the rate-limit short circuit: a blocked
identifier never reaches credential checking.
*/
func TestService_Login_Throttled(t *testing.T) {
	store := newFakeStore()
	codec, err := sec.NewTokenCodec("service-test-secret", "accountd")
	require.NoError(t, err)

	service := identity.NewService(store, blockingThrottle{retryAfter: 60}, codec, time.Hour, false, testLogger())

	_, err = service.Login(context.Background(), identity.LoginInput{
		Identifier: "anyone@example.com",
		Password:   "password-123",
	})

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "RATE_LIMITED", ae.Code)
}

/*
TestService_ChangePassword verifies the rotation flow and the wrong-current
rejection.
*/
func TestService_ChangePassword(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, false)
	account := register(t, service, "rotator", "rotate@example.com")

	// 1. Wrong current password is rejected
	err := service.ChangePassword(context.Background(), account.ID, identity.ChangePasswordInput{
		CurrentPassword: "wrong",
		NewPassword:     "brand-new-password",
	})
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "Current password is incorrect", ae.Message)

	// 2. Correct current password rotates
	err = service.ChangePassword(context.Background(), account.ID, identity.ChangePasswordInput{
		CurrentPassword: "password-123",
		NewPassword:     "brand-new-password",
	})
	require.NoError(t, err)

	// 3. Only the new password logs in afterwards
	_, err = service.Login(context.Background(), identity.LoginInput{
		Identifier: "rotate@example.com",
		Password:   "password-123",
	})
	assert.Error(t, err)

	_, err = service.Login(context.Background(), identity.LoginInput{
		Identifier: "rotate@example.com",
		Password:   "brand-new-password",
	})
	assert.NoError(t, err)
}

/*
TestService_DegradedReads verifies the availability policy with strict mode
off: single reads degrade to NOT_FOUND and collections to an empty page.
*/
func TestService_DegradedReads(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, false)
	account := register(t, service, "degraded", "degraded@example.com")

	store.unavailable = true

	// 1. Single read degrades to NOT_FOUND
	_, err := service.GetAccount(context.Background(), account.ID)
	assert.True(t, apperr.IsNotFound(err))

	// 2. Listing degrades to an empty page with zeroed metadata
	accounts, meta, err := service.List(context.Background(), identity.ListFilter{}, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.Equal(t, 0, meta.Total)

	// 3. Search degrades to an empty slice
	results, err := service.Search(context.Background(), "degraded", pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, results)
}

/*
TestService_StrictReads verifies that strict mode surfaces the outage as
UNAVAILABLE instead of masking it.
*/
func TestService_StrictReads(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, true)
	account := register(t, service, "strict", "strict@example.com")

	store.unavailable = true

	_, err := service.GetAccount(context.Background(), account.ID)
	assert.True(t, apperr.IsUnavailable(err))

	_, _, err = service.List(context.Background(), identity.ListFilter{}, pagination.Params{Page: 1, Limit: 20})
	assert.True(t, apperr.IsUnavailable(err))
}

/*
TestService_WritesNeverDegrade verifies that write paths surface UNAVAILABLE
even with strict mode off.
*/
func TestService_WritesNeverDegrade(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, false)
	account := register(t, service, "writer", "writer@example.com")

	store.unavailable = true

	_, err := service.Register(context.Background(), identity.RegisterInput{
		FullName: "Late Person",
		Username: "late",
		Email:    "late@example.com",
		Password: "password-123",
	})
	assert.True(t, apperr.IsUnavailable(err))

	assert.True(t, apperr.IsUnavailable(service.Deactivate(context.Background(), account.ID)))
	assert.True(t, apperr.IsUnavailable(service.Delete(context.Background(), account.ID)))
}

/*
TestService_AdminCreate verifies explicit role and active-status control.
*/
func TestService_AdminCreate(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, false)
	register(t, service, "bootstrap", "bootstrap@example.com")

	inactive := false
	account, err := service.AdminCreate(context.Background(), identity.AdminCreateInput{
		FullName: "Managed Person",
		Username: "managed",
		Email:    "managed@example.com",
		Password: "password-123",
		Role:     "admin",
		IsActive: &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, sec.RoleAdmin, account.Role)
	assert.False(t, account.IsActive)
}

/*
TestService_UpdateAccount verifies partial updates and role validation.
*/
func TestService_UpdateAccount(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, false)
	account := register(t, service, "editable", "editable@example.com")

	newName := "Renamed Person"
	updated, err := service.UpdateAccount(context.Background(), account.ID, identity.UpdateInput{
		FullName: &newName,
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Person", updated.FullName)
	assert.Equal(t, account.Username, updated.Username)
	assert.NotNil(t, updated.UpdatedAt)

	// Unknown role is rejected before touching the store
	badRole := "superuser"
	_, err = service.UpdateAccount(context.Background(), account.ID, identity.UpdateInput{
		Role: &badRole,
	})
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
}

/*
TestService_ListAndSearch verifies filters, pagination metadata, and
substring matching.
*/
func TestService_ListAndSearch(t *testing.T) {
	store := newFakeStore()
	service := newTestService(t, store, false)

	register(t, service, "alpha", "alpha@example.com")   // bootstrap admin
	register(t, service, "beta", "beta@example.com")     // user
	register(t, service, "gamma", "gamma@example.com")   // user
	account := register(t, service, "delta", "delta@example.com")
	require.NoError(t, service.Deactivate(context.Background(), account.ID))

	// 1. Unfiltered listing counts everyone
	accounts, meta, err := service.List(context.Background(), identity.ListFilter{}, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Equal(t, 4, meta.Total)
	assert.Equal(t, 2, meta.TotalPages)

	// 2. Role filter narrows to standard users
	userRole := sec.RoleUser
	accounts, meta, err = service.List(context.Background(), identity.ListFilter{Role: &userRole}, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, accounts, 3)
	assert.Equal(t, 3, meta.Total)

	// 3. Active filter excludes the deactivated account
	active := true
	_, meta, err = service.List(context.Background(), identity.ListFilter{IsActive: &active}, pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Total)

	// 4. Search matches username substrings
	results, err := service.Search(context.Background(), "amm", pagination.Params{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "gamma", results[0].Username)
}
