// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package identity

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/quangtd/accountd/internal/platform/request"
	"github.com/quangtd/accountd/internal/platform/respond"
	"github.com/quangtd/accountd/internal/platform/sec"
	"github.com/quangtd/accountd/internal/platform/validate"
	"github.com/quangtd/accountd/pkg/pagination"
	"github.com/quangtd/accountd/pkg/pointer"
)

// # Definitions & Constructors

// AdminHandler implements the account-administration HTTP endpoints.
//
// # Scope
//
// Every route here runs behind [Gate.Authenticated] and [Gate.RequireAdmin].
// The surface covers listing, searching, creating, editing, (de)activating,
// and deleting any account.
type AdminHandler struct {
	accountService *Service
	gate           *Gate
}

// NewAdminHandler constructs a new [AdminHandler] with its dependencies.
func NewAdminHandler(service *Service, gate *Gate) *AdminHandler {
	return &AdminHandler{
		accountService: service,
		gate:           gate,
	}
}

// Routes returns a [chi.Router] configured with admin-only account routes.
//
// # Endpoints
//   - GET    /                        : Paginated account listing with filters.
//   - GET    /search                  : Substring search over name/username/email.
//   - POST   /                        : Creates an account with explicit role.
//   - GET    /{accountID}             : Fetches one account.
//   - PATCH  /{accountID}             : Partial update, role changes included.
//   - DELETE /{accountID}             : Permanent removal.
//   - POST   /{accountID}/activate    : Restores a deactivated account.
//   - POST   /{accountID}/deactivate  : Blocks an account from logging in.
func (handler *AdminHandler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Use(handler.gate.Authenticated)
	router.Use(handler.gate.RequireAdmin)

	router.Get("/", handler.list)
	router.Get("/search", handler.search)
	router.Post("/", handler.create)

	router.Route("/{accountID}", func(r chi.Router) {
		r.Get("/", handler.get)
		r.Patch("/", handler.update)
		r.Delete("/", handler.delete)
		r.Post("/activate", handler.activate)
		r.Post("/deactivate", handler.deactivate)
	})

	return router
}

// # Request Payloads

type adminCreateRequest struct {
	FullName  string `json:"full_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatar_url"`
	Role      string `json:"role"`
	IsActive  *bool  `json:"is_active"`
}

type adminUpdateRequest struct {
	FullName  *string `json:"full_name"`
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatar_url"`
	Role      *string `json:"role"`
}

/*
List returns a paginated page of accounts.

GET /api/v1/users?page=&limit=&role=&is_active=

Description: Optional role and is_active query filters narrow the listing.
Unknown filter values are rejected before touching the store.

Response:
  - 200: []Account + Meta: Matching page with pagination metadata
  - 400: ErrValidation: Unknown role or is_active value
*/
func (handler *AdminHandler) list(writer http.ResponseWriter, request *http.Request) {
	filter, err := parseListFilter(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)

	accounts, meta, err := handler.accountService.List(request.Context(), filter, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, accounts, *meta)
}

// parseListFilter reads the optional role / is_active query filters.
func parseListFilter(request *http.Request) (ListFilter, error) {
	filter := ListFilter{}
	query := request.URL.Query()

	if raw := query.Get(FieldRole); raw != "" {
		role := sec.UserRole(raw)
		if !role.IsValid() {
			validator := &validate.Validator{}
			validator.OneOf(FieldRole, raw, string(sec.RoleAdmin), string(sec.RoleUser))
			return filter, validator.Err()
		}
		filter.Role = pointer.To(role)
	}

	if raw := query.Get(FieldIsActive); raw != "" {
		switch raw {
		case "true":
			filter.IsActive = pointer.To(true)
		case "false":
			filter.IsActive = pointer.To(false)
		default:
			validator := &validate.Validator{}
			validator.OneOf(FieldIsActive, raw, "true", "false")
			return filter, validator.Err()
		}
	}

	return filter, nil
}

/*
Search matches accounts by a case-insensitive substring.

GET /api/v1/users/search?q=&page=&limit=

Description: The term is matched against full name, username, and email.
A match on any one field qualifies the record.

Response:
  - 200: []Account: Matching page
  - 400: ErrValidation: Missing search term
*/
func (handler *AdminHandler) search(writer http.ResponseWriter, request *http.Request) {
	term := request.URL.Query().Get(FieldQuery)

	validator := &validate.Validator{}
	validator.Required(FieldQuery, term)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)

	accounts, err := handler.accountService.Search(request.Context(), term, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, accounts)
}

/*
Create provisions an account with an explicit role and active status.

POST /api/v1/users

Request:
  - Body: adminCreateRequest (FullName, Username, Email, Password, AvatarURL, Role, IsActive)

Response:
  - 201: Account: Created account
  - 400: ErrInvalidJSON: Bad input or validation failure
  - 409: ErrConflict: Username or Email already exists
*/
func (handler *AdminHandler) create(writer http.ResponseWriter, request *http.Request) {
	var input adminCreateRequest

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
		MinLen(FieldPassword, input.Password, 8).
		Custom(FieldRole, !sec.ParseRole(input.Role).IsValid(), "Unknown role")

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.AdminCreate(request.Context(), AdminCreateInput{
		FullName:  input.FullName,
		Username:  input.Username,
		Email:     input.Email,
		Password:  input.Password,
		AvatarURL: input.AvatarURL,
		Role:      input.Role,
		IsActive:  input.IsActive,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, account)
}

/*
Get fetches a single account by ID.

GET /api/v1/users/{accountID}

Response:
  - 200: Account: Hydrated account
  - 404: ErrNotFound: No such account
*/
func (handler *AdminHandler) get(writer http.ResponseWriter, request *http.Request) {
	accountID := requestutil.Param(request, FieldAccountID)

	validator := &validate.Validator{}
	validator.UUID(FieldAccountID, accountID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.GetAccount(request.Context(), accountID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
Update applies a partial update to any account, role changes included.

PATCH /api/v1/users/{accountID}

Request:
  - Body: adminUpdateRequest (all fields optional)

Response:
  - 200: Account: The updated account
  - 404: ErrNotFound: No such account
  - 409: ErrConflict: Username or Email already taken
*/
func (handler *AdminHandler) update(writer http.ResponseWriter, request *http.Request) {
	accountID := requestutil.Param(request, FieldAccountID)

	var input adminUpdateRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.UUID(FieldAccountID, accountID)
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
	if input.Role != nil {
		validator.OneOf(FieldRole, *input.Role, string(sec.RoleAdmin), string(sec.RoleUser))
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	account, err := handler.accountService.UpdateAccount(request.Context(), accountID, UpdateInput{
		FullName:  input.FullName,
		Username:  input.Username,
		Email:     input.Email,
		AvatarURL: input.AvatarURL,
		Role:      input.Role,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, account)
}

/*
Delete permanently removes an account.

DELETE /api/v1/users/{accountID}

Response:
  - 204: No Content: Account removed
  - 404: ErrNotFound: No such account
*/
func (handler *AdminHandler) delete(writer http.ResponseWriter, request *http.Request) {
	accountID := requestutil.Param(request, FieldAccountID)

	validator := &validate.Validator{}
	validator.UUID(FieldAccountID, accountID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accountService.Delete(request.Context(), accountID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Activate restores a deactivated account.

POST /api/v1/users/{accountID}/activate

Response:
  - 204: No Content: Account restored
  - 404: ErrNotFound: No such account
*/
func (handler *AdminHandler) activate(writer http.ResponseWriter, request *http.Request) {
	handler.setActive(writer, request, true)
}

/*
Deactivate blocks an account from authenticating.

POST /api/v1/users/{accountID}/deactivate

Description: Takes effect on the target's very next request. The gate
re-reads the live record, so outstanding tokens stop working immediately.

Response:
  - 204: No Content: Account blocked
  - 404: ErrNotFound: No such account
*/
func (handler *AdminHandler) deactivate(writer http.ResponseWriter, request *http.Request) {
	handler.setActive(writer, request, false)
}

// setActive is the shared body of the activate/deactivate endpoints.
func (handler *AdminHandler) setActive(writer http.ResponseWriter, request *http.Request, active bool) {
	accountID := requestutil.Param(request, FieldAccountID)

	validator := &validate.Validator{}
	validator.UUID(FieldAccountID, accountID)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	var err error
	if active {
		err = handler.accountService.Activate(request.Context(), accountID)
	} else {
		err = handler.accountService.Deactivate(request.Context(), accountID)
	}

	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
