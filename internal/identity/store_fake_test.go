// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package identity_test

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/quangtd/accountd/internal/identity"
	"github.com/quangtd/accountd/internal/platform/apperr"
	"github.com/quangtd/accountd/internal/platform/sec"
	"github.com/quangtd/accountd/pkg/pagination"
	"github.com/quangtd/accountd/pkg/uuidv7"
)

// fakeStore is an in-memory [identity.Store] mirroring the real adapter's
// contract: lowercase emails, unique email/username, admin bootstrap on the
// first insert, and a switchable UNAVAILABLE mode.
type fakeStore struct {
	accounts    map[string]*identity.Account
	unavailable bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*identity.Account)}
}

func (store *fakeStore) probe() error {
	if store.unavailable {
		return apperr.Unavailable(nil)
	}
	return nil
}

func (store *fakeStore) FindByEmail(_ context.Context, email string) (*identity.Account, error) {
	if err := store.probe(); err != nil {
		return nil, err
	}
	for _, account := range store.accounts {
		if account.Email == strings.ToLower(email) {
			copied := *account
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (store *fakeStore) FindByUsername(_ context.Context, username string) (*identity.Account, error) {
	if err := store.probe(); err != nil {
		return nil, err
	}
	for _, account := range store.accounts {
		if account.Username == username {
			copied := *account
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (store *fakeStore) FindByID(_ context.Context, id string) (*identity.Account, error) {
	if err := store.probe(); err != nil {
		return nil, err
	}
	account, found := store.accounts[id]
	if !found {
		return nil, apperr.NotFound("Account")
	}
	copied := *account
	return &copied, nil
}

func (store *fakeStore) FindByIdentifier(ctx context.Context, identifier string) (*identity.Account, error) {
	account, err := store.FindByEmail(ctx, identifier)
	if err == nil {
		return account, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}
	return store.FindByUsername(ctx, identifier)
}

func (store *fakeStore) Create(ctx context.Context, input identity.NewAccount) (*identity.Account, error) {
	if err := store.probe(); err != nil {
		return nil, err
	}

	email := strings.ToLower(input.Email)
	for _, existing := range store.accounts {
		if existing.Email == email || existing.Username == input.Username {
			return nil, apperr.Conflict("Account already exists")
		}
	}

	role := input.Role
	if len(store.accounts) == 0 {
		role = sec.RoleAdmin
	}

	account := &identity.Account{
		ID:           uuidv7.New(),
		FullName:     input.FullName,
		Username:     input.Username,
		Email:        email,
		PasswordHash: input.PasswordHash,
		Role:         role,
		AvatarURL:    input.AvatarURL,
		IsActive:     input.IsActive,
		CreatedAt:    time.Now(),
	}
	store.accounts[account.ID] = account

	copied := *account
	return &copied, nil
}

func (store *fakeStore) Update(_ context.Context, id string, changes identity.AccountChanges) (*identity.Account, error) {
	if err := store.probe(); err != nil {
		return nil, err
	}
	account, found := store.accounts[id]
	if !found {
		return nil, apperr.NotFound("Account")
	}

	if changes.Email != nil {
		lowered := strings.ToLower(*changes.Email)
		for otherID, other := range store.accounts {
			if otherID != id && other.Email == lowered {
				return nil, apperr.Conflict("Account with this email already exists")
			}
		}
		account.Email = lowered
	}
	if changes.Username != nil {
		for otherID, other := range store.accounts {
			if otherID != id && other.Username == *changes.Username {
				return nil, apperr.Conflict("Account with this username already exists")
			}
		}
		account.Username = *changes.Username
	}
	if changes.FullName != nil {
		account.FullName = *changes.FullName
	}
	if changes.Role != nil {
		account.Role = *changes.Role
	}
	if changes.AvatarURL != nil {
		account.AvatarURL = *changes.AvatarURL
	}

	now := time.Now()
	account.UpdatedAt = &now

	copied := *account
	return &copied, nil
}

func (store *fakeStore) UpdateLastLogin(_ context.Context, id string) error {
	if err := store.probe(); err != nil {
		return err
	}
	account, found := store.accounts[id]
	if !found {
		return apperr.NotFound("Account")
	}
	now := time.Now()
	account.LastLogin = &now
	return nil
}

func (store *fakeStore) List(_ context.Context, filter identity.ListFilter, page pagination.Params) ([]identity.Account, error) {
	if err := store.probe(); err != nil {
		return nil, err
	}

	matched := store.filtered(filter)
	start := page.Offset()
	if start >= len(matched) {
		return []identity.Account{}, nil
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (store *fakeStore) Count(_ context.Context, filter identity.ListFilter) (int, error) {
	if err := store.probe(); err != nil {
		return 0, err
	}
	return len(store.filtered(filter)), nil
}

func (store *fakeStore) Search(_ context.Context, term string, page pagination.Params) ([]identity.Account, error) {
	if err := store.probe(); err != nil {
		return nil, err
	}

	needle := strings.ToLower(term)
	matched := make([]identity.Account, 0)
	for _, account := range store.sorted() {
		haystack := strings.ToLower(account.FullName + " " + account.Username + " " + account.Email)
		if strings.Contains(haystack, needle) {
			matched = append(matched, account)
		}
	}

	start := page.Offset()
	if start >= len(matched) {
		return []identity.Account{}, nil
	}
	end := start + page.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (store *fakeStore) Deactivate(_ context.Context, id string) error {
	return store.setActive(id, false)
}

func (store *fakeStore) Activate(_ context.Context, id string) error {
	return store.setActive(id, true)
}

func (store *fakeStore) setActive(id string, active bool) error {
	if err := store.probe(); err != nil {
		return err
	}
	account, found := store.accounts[id]
	if !found {
		return apperr.NotFound("Account")
	}
	account.IsActive = active
	now := time.Now()
	account.UpdatedAt = &now
	return nil
}

func (store *fakeStore) Delete(_ context.Context, id string) error {
	if err := store.probe(); err != nil {
		return err
	}
	if _, found := store.accounts[id]; !found {
		return apperr.NotFound("Account")
	}
	delete(store.accounts, id)
	return nil
}

func (store *fakeStore) ChangePasswordHash(_ context.Context, id, newHash string) error {
	if err := store.probe(); err != nil {
		return err
	}
	account, found := store.accounts[id]
	if !found {
		return apperr.NotFound("Account")
	}
	account.PasswordHash = newHash
	now := time.Now()
	account.UpdatedAt = &now
	return nil
}

func (store *fakeStore) filtered(filter identity.ListFilter) []identity.Account {
	matched := make([]identity.Account, 0, len(store.accounts))
	for _, account := range store.sorted() {
		if filter.Role != nil && account.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && account.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, account)
	}
	return matched
}

func (store *fakeStore) sorted() []identity.Account {
	all := make([]identity.Account, 0, len(store.accounts))
	for _, account := range store.accounts {
		all = append(all, *account)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	return all
}

// blockingThrottle always rejects, for exercising the rate-limit path.
type blockingThrottle struct {
	retryAfter int
}

func (throttle blockingThrottle) Allow(context.Context, string) (bool, int) {
	return false, throttle.retryAfter
}
func (blockingThrottle) RecordFailure(context.Context, string) {}
func (blockingThrottle) Clear(context.Context, string)         {}
