// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quangtd/accountd/internal/platform/apperr"
	requestutil "github.com/quangtd/accountd/internal/platform/request"
	"github.com/quangtd/accountd/internal/platform/respond"
	"github.com/quangtd/accountd/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements the public authentication endpoints and the
// self-service endpoints of the authenticated account.
//
// # Scope
//
// Everything a caller can do to their own identity lives here: register,
// log in, inspect and edit the own profile, rotate the password, and
// self-deactivate. Administration of other accounts is in [AdminHandler].
type Handler struct {
	accountService *Service
	gate           *Gate
}

// NewHandler constructs a new [Handler] with its dependencies.
func NewHandler(service *Service, gate *Gate) *Handler {
	return &Handler{
		accountService: service,
		gate:           gate,
	}
}

// Routes returns a [chi.Router] configured with the auth and self-service routes.
//
// # Endpoints
//   - POST /register         : Creates a new account.
//   - POST /login            : Authenticates and returns a session token.
//   - GET  /me               : Returns the authenticated account.
//   - PATCH /me              : Updates the authenticated account's profile.
//   - POST /change-password  : Rotates the authenticated account's password.
//   - DELETE /me             : Self-deactivation (standard accounts only).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.gate.Authenticated)
		r.Get("/me", handler.me)
		r.Patch("/me", handler.updateMe)
		r.Post("/change-password", handler.changePassword)

		// Admins manage accounts through the admin surface and cannot
		// self-deactivate here; losing the last admin by accident locks
		// the whole admin surface.
		r.With(handler.gate.RequireUser).Delete("/me", handler.deactivateMe)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatar_url"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type updateMeRequest struct {
	FullName  *string `json:"full_name"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

/*
Register handles the creation of a new account.

POST /api/v1/auth/register

Description: Validates input and persists a new standard account. The very
first account ever created is promoted to admin by the store's bootstrap
rule; every later registration gets the user role.

Request:
  - Body: registerRequest (FullName, Username, Email, Password, AvatarURL)

Response:
  - 201: Account: Created account profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Username or Email already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldFullName, input.FullName).
		MaxLen(FieldFullName, input.FullName, 100).
		Required(FieldUsername, input.Username).
		MinLen(FieldUsername, input.Username, 3).
		MaxLen(FieldUsername, input.Username, 50).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.Register(request.Context(), RegisterInput{
		FullName:  input.FullName,
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password,
		AvatarURL: input.AvatarURL,
	})

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, account)
}

/*
Login authenticates an account and issues a session token.

POST /api/v1/auth/login

Description: Accepts either email or username as the identifier. All
credential failures return the same generic message so identifiers cannot
be probed.

Request:
  - Body: loginRequest (Identifier, Password)

Response:
  - 200: Session: Bearer token, expiry, and account profile
  - 401: ErrUnauthorized: Invalid credentials
  - 403: ErrForbidden: Account deactivated
  - 429: ErrRateLimited: Too many failed attempts
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier)
	validator.Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.accountService.Login(request.Context(), LoginInput{
		Identifier: input.Identifier,
		Password:   input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, session)
}

/*
Me returns the authenticated account's own profile.

GET /api/v1/auth/me

Response:
  - 200: Account: The live account behind the presented token
  - 401: ErrUnauthorized: Missing or invalid token
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	principal, ok := PrincipalFrom(request.Context())
	if !ok {
		respond.Error(writer, request, apperr.Unauthorized("No authentication token provided"))
		return
	}

	respond.OK(writer, principal)
}

/*
UpdateMe applies a partial update to the authenticated account's profile.

PATCH /api/v1/auth/me

Description: Only profile fields are accepted here. The role field is not
part of the payload, accounts never change their own role.

Request:
  - Body: updateMeRequest (FullName, Username, Email, AvatarURL; all optional)

Response:
  - 200: Account: The updated profile
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Username or Email already taken
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	principal, ok := PrincipalFrom(request.Context())
	if !ok {
		respond.Error(writer, request, apperr.Unauthorized("No authentication token provided"))
		return
	}

	var input updateMeRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	if input.FullName != nil {
		validator.Required(FieldFullName, *input.FullName).
			MaxLen(FieldFullName, *input.FullName, 100)
	}
	if input.Username != nil {
		validator.MinLen(FieldUsername, *input.Username, 3).
			MaxLen(FieldUsername, *input.Username, 50)
	}
	if input.Email != nil {
		validator.Email(FieldEmail, *input.Email)
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.UpdateAccount(request.Context(), principal.ID, UpdateInput{
		FullName:  input.FullName,
		Username:  input.Username,
		Email:     input.Email,
		AvatarURL: input.AvatarURL,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
ChangePassword rotates the authenticated account's password.

POST /api/v1/auth/change-password

Request:
  - Body: changePasswordRequest (CurrentPassword, NewPassword)

Response:
  - 204: No Content: Password rotated
  - 401: ErrUnauthorized: Current password incorrect
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	principal, ok := PrincipalFrom(request.Context())
	if !ok {
		respond.Error(writer, request, apperr.Unauthorized("No authentication token provided"))
		return
	}

	var input changePasswordRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword).
		MinLen(FieldNewPassword, input.NewPassword, 8)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.accountService.ChangePassword(request.Context(), principal.ID, ChangePasswordInput{
		CurrentPassword: input.CurrentPassword,
		NewPassword:     input.NewPassword,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
DeactivateMe disables the authenticated account.

DELETE /api/v1/auth/me

Description: Restricted to standard accounts via the exact-match user guard.
The account record survives; an admin can reactivate it later.

Response:
  - 204: No Content: Account deactivated
  - 403: ErrForbidden: Caller holds the admin role
*/
func (handler *Handler) deactivateMe(writer http.ResponseWriter, request *http.Request) {
	principal, ok := PrincipalFrom(request.Context())
	if !ok {
		respond.Error(writer, request, apperr.Unauthorized("No authentication token provided"))
		return
	}

	if err := handler.accountService.Deactivate(request.Context(), principal.ID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
