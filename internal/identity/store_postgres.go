// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

/*
Package identity (Postgres) implements the account store adapter using pgx.

# Schema Table Mapping
  - identity.account: Master identity record with unique indexes on email
    and username. The indexes — created at provisioning time by migration —
    are the authoritative uniqueness enforcement point; the advisory
    pre-checks in this file are a best-effort UX optimization only.

# Error Mapping

Storage-specific errors (pgx.ErrNoRows, SQLSTATE 23505) are mapped to typed
[apperr.AppError] values via [dberr.Wrap] to avoid leaking storage
implementation details.
*/
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quangtd/accountd/internal/platform/apperr"
	"github.com/quangtd/accountd/internal/platform/constants"
	"github.com/quangtd/accountd/internal/platform/dberr"
	pgstore "github.com/quangtd/accountd/internal/platform/postgres"
	"github.com/quangtd/accountd/pkg/pagination"
	"github.com/quangtd/accountd/pkg/uuidv7"
)

// accountColumns is the canonical column list, kept in sync with scanAccount.
const accountColumns = `id, full_name, username, email, password_hash, role, avatar_url, is_active, created_at, last_login, updated_at`

// accountTable is the schema-qualified table every query below targets.
const accountTable = constants.SchemaIdentity + ".account"

// PostgresStore implements the [Store] interface using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL implementation of the account [Store].
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// probe performs the lightweight liveness check that guards every operation.
//
// On failure the operation short-circuits with a typed UNAVAILABLE error so
// callers can distinguish "store unreachable" from "not found" — the caller
// decides whether to degrade.
func (store *PostgresStore) probe(context context.Context) error {
	if err := pgstore.Ping(context, store.pool); err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}

// scanAccount hydrates an Account from a row selected with accountColumns.
func scanAccount(row pgx.Row) (*Account, error) {
	account := &Account{}
	err := row.Scan(
		&account.ID,
		&account.FullName,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.AvatarURL,
		&account.IsActive,
		&account.CreatedAt,
		&account.LastLogin,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// # Lookups

/*
FindByEmail retrieves an account by its unique email address.

Description: Emails are stored lowercase, so the lookup normalizes the input
the same way instead of relying on a case-insensitive query.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *Account: Hydrated account entity
  - error: NOT_FOUND, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) FindByEmail(context context.Context, email string) (*Account, error) {
	if err := store.probe(context); err != nil {
		return nil, err
	}

	const query = `
		SELECT ` + accountColumns + `
		FROM ` + accountTable + `
		WHERE email = $1`

	account, err := scanAccount(store.pool.QueryRow(context, query, strings.ToLower(email)))
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	return account, nil
}

/*
FindByUsername retrieves an account by its unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *Account: Hydrated account entity
  - error: NOT_FOUND, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) FindByUsername(context context.Context, username string) (*Account, error) {
	if err := store.probe(context); err != nil {
		return nil, err
	}

	const query = `
		SELECT ` + accountColumns + `
		FROM ` + accountTable + `
		WHERE username = $1`

	account, err := scanAccount(store.pool.QueryRow(context, query, username))
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	return account, nil
}

/*
FindByID retrieves an account by its primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Account: Hydrated account entity
  - error: NOT_FOUND, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) FindByID(context context.Context, id string) (*Account, error) {
	if err := store.probe(context); err != nil {
		return nil, err
	}

	const query = `
		SELECT ` + accountColumns + `
		FROM ` + accountTable + `
		WHERE id = $1`

	account, err := scanAccount(store.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	return account, nil
}

/*
FindByIdentifier resolves a flexible login identifier.

Description: Tries the email lookup first, then falls back to username.
UNAVAILABLE short-circuits immediately — there is no point retrying the
second lookup against a store the probe already reported down.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - *Account: Hydrated account entity
  - error: NOT_FOUND, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) FindByIdentifier(context context.Context, identifier string) (*Account, error) {
	account, err := store.FindByEmail(context, identifier)
	if err == nil {
		return account, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	return store.FindByUsername(context, identifier)
}

// # Mutations

/*
Create inserts a new account row and returns the stored record.

Description: The role column is computed inside the INSERT itself — the
bootstrap count and the write happen in one atomic statement, which is the
closest the count can possibly sit to the insert. RETURNING hands back the
row exactly as the database stores it.

Parameters:
  - context: context.Context
  - input: NewAccount

Returns:
  - *Account: The stored record
  - error: CONFLICT (unique index violation), UNAVAILABLE, or database errors
*/
func (store *PostgresStore) Create(context context.Context, input NewAccount) (*Account, error) {
	if err := store.probe(context); err != nil {
		return nil, err
	}

	const query = `
		INSERT INTO ` + accountTable + ` (
			id, full_name, username, email, password_hash, role, avatar_url, is_active, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			CASE WHEN (SELECT COUNT(*) FROM ` + accountTable + `) = 0 THEN 'admin' ELSE $6 END,
			$7, $8, $9
		)
		RETURNING ` + accountColumns

	account, err := scanAccount(store.pool.QueryRow(context, query,
		uuidv7.New(),
		input.FullName,
		input.Username,
		strings.ToLower(input.Email),
		input.PasswordHash,
		string(input.Role),
		input.AvatarURL,
		input.IsActive,
		time.Now(),
	))

	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	return account, nil
}

/*
Update applies a partial change set in a single atomic UPDATE.

Description: Nil change fields fall through to the existing column value via
COALESCE, so the read-modify-write is one statement with no race window.
When username or email change, an advisory uniqueness pre-check excluding
this record runs first; the unique indexes still back it authoritatively.

Parameters:
  - context: context.Context
  - id: string
  - changes: AccountChanges

Returns:
  - *Account: The updated record
  - error: NOT_FOUND, CONFLICT, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) Update(context context.Context, id string, changes AccountChanges) (*Account, error) {
	if err := store.probe(context); err != nil {
		return nil, err
	}

	if changes.Email != nil {
		lowered := strings.ToLower(*changes.Email)
		changes.Email = &lowered
		if err := store.checkTaken(context, "email", lowered, id); err != nil {
			return nil, err
		}
	}

	if changes.Username != nil {
		if err := store.checkTaken(context, "username", *changes.Username, id); err != nil {
			return nil, err
		}
	}

	const query = `
		UPDATE ` + accountTable + ` SET
			full_name  = COALESCE($2, full_name),
			username   = COALESCE($3, username),
			email      = COALESCE($4, email),
			role       = COALESCE($5, role),
			avatar_url = COALESCE($6, avatar_url),
			updated_at = $7
		WHERE id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(store.pool.QueryRow(context, query,
		id,
		changes.FullName,
		changes.Username,
		changes.Email,
		changes.Role,
		changes.AvatarURL,
		time.Now(),
	))

	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	return account, nil
}

// checkTaken is the advisory uniqueness pre-check for updates: it rejects a
// new email/username value already held by a different record.
func (store *PostgresStore) checkTaken(context context.Context, column, value, excludeID string) error {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM ` + accountTable + ` WHERE %s = $1 AND id <> $2)`, column)

	var taken bool
	if err := store.pool.QueryRow(context, query, value, excludeID).Scan(&taken); err != nil {
		return dberr.Wrap(err, "Account")
	}

	if taken {
		return apperr.Conflict("Account with this " + column + " already exists")
	}

	return nil
}

/*
UpdateLastLogin stamps the last-login timestamp for an account.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: NOT_FOUND, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) UpdateLastLogin(context context.Context, id string) error {
	if err := store.probe(context); err != nil {
		return err
	}

	const query = `UPDATE ` + accountTable + ` SET last_login = $2 WHERE id = $1`

	tag, err := store.pool.Exec(context, query, id, time.Now())
	if err != nil {
		return dberr.Wrap(err, "Account")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Account")
	}

	return nil
}

/*
ChangePasswordHash replaces only the password hash, stamping updated_at.

Parameters:
  - context: context.Context
  - id: string
  - newHash: string

Returns:
  - error: NOT_FOUND, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) ChangePasswordHash(context context.Context, id, newHash string) error {
	if err := store.probe(context); err != nil {
		return err
	}

	const query = `UPDATE ` + accountTable + ` SET password_hash = $2, updated_at = $3 WHERE id = $1`

	tag, err := store.pool.Exec(context, query, id, newHash, time.Now())
	if err != nil {
		return dberr.Wrap(err, "Account")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Account")
	}

	return nil
}

/*
Deactivate clears the active flag, stamping updated_at.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: NOT_FOUND, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) Deactivate(context context.Context, id string) error {
	return store.setActive(context, id, false)
}

/*
Activate restores the active flag, stamping updated_at.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: NOT_FOUND, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) Activate(context context.Context, id string) error {
	return store.setActive(context, id, true)
}

// setActive flips the is_active flag behind Activate/Deactivate.
func (store *PostgresStore) setActive(context context.Context, id string, active bool) error {
	if err := store.probe(context); err != nil {
		return err
	}

	const query = `UPDATE ` + accountTable + ` SET is_active = $2, updated_at = $3 WHERE id = $1`

	tag, err := store.pool.Exec(context, query, id, active, time.Now())
	if err != nil {
		return dberr.Wrap(err, "Account")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Account")
	}

	return nil
}

/*
Delete permanently removes an account row. No tombstone is kept.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: NOT_FOUND, UNAVAILABLE, or database errors
*/
func (store *PostgresStore) Delete(context context.Context, id string) error {
	if err := store.probe(context); err != nil {
		return err
	}

	const query = `DELETE FROM ` + accountTable + ` WHERE id = $1`

	tag, err := store.pool.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "Account")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Account")
	}

	return nil
}

// # Queries

/*
List returns a page of accounts matching the filter, oldest first.

Parameters:
  - context: context.Context
  - filter: ListFilter
  - page: pagination.Params

Returns:
  - []Account: Matching page of records
  - error: UNAVAILABLE or database errors
*/
func (store *PostgresStore) List(context context.Context, filter ListFilter, page pagination.Params) ([]Account, error) {
	if err := store.probe(context); err != nil {
		return nil, err
	}

	where, args := buildFilter(filter)
	query := fmt.Sprintf(`
		SELECT `+accountColumns+`
		FROM ` + accountTable + `
		%s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, page.Limit, page.Offset())

	return store.queryAccounts(context, query, args)
}

/*
Count returns the number of accounts matching the filter.

Parameters:
  - context: context.Context
  - filter: ListFilter

Returns:
  - int: Matching record count
  - error: UNAVAILABLE or database errors
*/
func (store *PostgresStore) Count(context context.Context, filter ListFilter) (int, error) {
	if err := store.probe(context); err != nil {
		return 0, err
	}

	where, args := buildFilter(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM ` + accountTable + ` %s`, where)

	var total int
	if err := store.pool.QueryRow(context, query, args...).Scan(&total); err != nil {
		return 0, dberr.Wrap(err, "Account")
	}

	return total, nil
}

/*
Search matches a case-insensitive substring against full name, username,
or email.

Description: A single OR query over three fields of the same record — no
duplicate removal is needed.

Parameters:
  - context: context.Context
  - term: string
  - page: pagination.Params

Returns:
  - []Account: Matching page of records
  - error: UNAVAILABLE or database errors
*/
func (store *PostgresStore) Search(context context.Context, term string, page pagination.Params) ([]Account, error) {
	if err := store.probe(context); err != nil {
		return nil, err
	}

	const query = `
		SELECT ` + accountColumns + `
		FROM ` + accountTable + `
		WHERE full_name ILIKE $1 OR username ILIKE $1 OR email ILIKE $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`

	pattern := "%" + escapeLike(term) + "%"

	return store.queryAccounts(context, query, []any{pattern, page.Limit, page.Offset()})
}

// queryAccounts runs a multi-row account query and hydrates the results.
func (store *PostgresStore) queryAccounts(context context.Context, query string, args []any) ([]Account, error) {
	rows, err := store.pool.Query(context, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "Account")
	}
	defer rows.Close()

	accounts := make([]Account, 0, 16)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "Account")
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "Account")
	}

	return accounts, nil
}

// buildFilter translates a ListFilter into a WHERE clause and its arguments.
func buildFilter(filter ListFilter) (string, []any) {
	conditions := make([]string, 0, 2)
	args := make([]any, 0, 2)

	if filter.Role != nil {
		args = append(args, string(*filter.Role))
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}

	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// escapeLike neutralizes LIKE wildcards in user-supplied search terms.
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
