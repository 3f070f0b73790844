// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package identity

import (
	"context"
	"net/http"

	"github.com/quangtd/accountd/internal/platform/apperr"
	"github.com/quangtd/accountd/internal/platform/ctxkey"
	requestutil "github.com/quangtd/accountd/internal/platform/request"
	"github.com/quangtd/accountd/internal/platform/respond"
	"github.com/quangtd/accountd/internal/platform/sec"
)

// # Access-Control Gate

// TokenVerifier is the slice of the token codec the gate needs.
type TokenVerifier interface {
	Verify(tokenString string) (*sec.SessionClaims, error)
}

// Gate resolves bearer tokens into live principals and enforces role guards.
//
// # Resolution Contract
//
// A valid token is never enough on its own. The gate re-reads the account
// behind the token's subject on every request, so deactivation and deletion
// take effect immediately instead of at token expiry. Role checks run
// against the live record, not the token claim.
//
// # Availability Policy
//
// When strict mode is off, a store outage during principal lookup is
// reported as an unknown principal (401) rather than an outage (503).
// Strict mode surfaces the 503 so operators can tell the two apart.
type Gate struct {
	verifier TokenVerifier
	store    Store
	strict   bool
}

// NewGate wires the access-control gate.
func NewGate(verifier TokenVerifier, store Store, strict bool) *Gate {
	return &Gate{
		verifier: verifier,
		store:    store,
		strict:   strict,
	}
}

/*
Resolve turns a raw bearer token into the live account it represents.

Description: The state machine is strict and ordered: missing token,
unverifiable token, malformed claims, unknown subject, then deactivated
account. Each state maps to its own client-facing message.

Parameters:
  - context: context.Context
  - token: string (raw bearer token, possibly empty)

Returns:
  - *Account: The live principal
  - error: UNAUTHORIZED, FORBIDDEN, or UNAVAILABLE (strict mode only)
*/
func (gate *Gate) Resolve(context context.Context, token string) (*Account, error) {
	if token == "" {
		return nil, apperr.Unauthorized("No authentication token provided")
	}

	claims, err := gate.verifier.Verify(token)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired authentication token")
	}

	if claims.Subject == "" {
		return nil, apperr.Unauthorized("Invalid token payload")
	}

	account, err := gate.store.FindByEmail(context, claims.Subject)
	if err != nil {
		if apperr.IsUnavailable(err) && gate.strict {
			return nil, err
		}
		return nil, apperr.Unauthorized("Account not found")
	}

	if !account.IsActive {
		return nil, apperr.Forbidden("Account deactivated. Please contact administrator.")
	}

	return account, nil
}

// # Middleware

// Authenticated requires a resolvable principal and stores it in the request
// context for downstream handlers.
func (gate *Gate) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal, err := gate.Resolve(request.Context(), requestutil.BearerToken(request))
		if err != nil {
			respond.Error(writer, request, err)
			return
		}

		requestContext := context.WithValue(request.Context(), ctxkey.KeyPrincipal, principal)
		next.ServeHTTP(writer, request.WithContext(requestContext))
	})
}

// RequireAdmin allows only principals holding the admin role.
// It must run after [Gate.Authenticated].
func (gate *Gate) RequireAdmin(next http.Handler) http.Handler {
	return gate.requireRole(next, sec.RoleAdmin, "Admin access required")
}

// RequireUser allows only principals holding exactly the user role.
// Admins are rejected too: role checks are exact-match, not hierarchical.
func (gate *Gate) RequireUser(next http.Handler) http.Handler {
	return gate.requireRole(next, sec.RoleUser, "User access required")
}

// requireRole is the shared exact-match role guard.
func (gate *Gate) requireRole(next http.Handler, role sec.UserRole, message string) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		principal, ok := PrincipalFrom(request.Context())
		if !ok {
			respond.Error(writer, request, apperr.Unauthorized("No authentication token provided"))
			return
		}

		if principal.Role != role {
			respond.Error(writer, request, apperr.Forbidden(message))
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// PrincipalFrom extracts the authenticated account stored by
// [Gate.Authenticated]. The boolean is false on unauthenticated requests.
func PrincipalFrom(context context.Context) (*Account, bool) {
	principal, ok := context.Value(ctxkey.KeyPrincipal).(*Account)
	return principal, ok && principal != nil
}
