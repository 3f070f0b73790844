// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quangtd/accountd/internal/platform/constants"
)

// # Login Throttle

// LoginThrottle bounds repeated failed login attempts per identifier.
//
// Implementations must fail open: an unreachable counter backend must never
// lock legitimate users out of authentication.
type LoginThrottle interface {

	/*
		Allow reports whether a login attempt for the identifier may proceed.

		Parameters:
		  - context: context.Context
		  - identifier: string (email or username, as submitted)

		Returns:
		  - bool: false when the failure budget is exhausted
		  - int: seconds until the window resets, valid only when blocked
	*/
	Allow(context context.Context, identifier string) (bool, int)

	/*
		RecordFailure counts one failed attempt against the identifier.

		Parameters:
		  - context: context.Context
		  - identifier: string
	*/
	RecordFailure(context context.Context, identifier string)

	/*
		Clear resets the failure counter after a successful login.

		Parameters:
		  - context: context.Context
		  - identifier: string
	*/
	Clear(context context.Context, identifier string)
}

// RedisLoginThrottle implements [LoginThrottle] on a Redis counter with TTL.
//
// One key per identifier (INCR + EXPIRE on first failure); the counter
// expires on its own, giving a fixed window rather than a sliding one.
type RedisLoginThrottle struct {
	client      *redis.Client
	logger      *slog.Logger
	maxAttempts int
	window      time.Duration
}

// NewRedisLoginThrottle creates a throttle with the default attempt budget.
func NewRedisLoginThrottle(client *redis.Client, logger *slog.Logger) *RedisLoginThrottle {
	return &RedisLoginThrottle{
		client:      client,
		logger:      logger,
		maxAttempts: constants.MaxLoginAttempts,
		window:      constants.LoginAttemptWindow,
	}
}

// key normalizes the identifier so "User@Example.com" and "user@example.com"
// share one counter.
func (throttle *RedisLoginThrottle) key(identifier string) string {
	return constants.RedisPrefixLoginFail + strings.ToLower(strings.TrimSpace(identifier))
}

// Allow checks the failure counter. Redis errors fail open.
func (throttle *RedisLoginThrottle) Allow(context context.Context, identifier string) (bool, int) {
	key := throttle.key(identifier)

	count, err := throttle.client.Get(context, key).Int()
	if err == redis.Nil {
		return true, 0
	}
	if err != nil {
		throttle.logger.Warn("login throttle check failed, failing open", slog.String("error", err.Error()))
		return true, 0
	}

	if count < throttle.maxAttempts {
		return true, 0
	}

	retryAfter, err := throttle.client.TTL(context, key).Result()
	if err != nil || retryAfter <= 0 {
		retryAfter = throttle.window
	}

	return false, int(retryAfter.Seconds())
}

// RecordFailure increments the counter, starting the window on the first hit.
func (throttle *RedisLoginThrottle) RecordFailure(context context.Context, identifier string) {
	key := throttle.key(identifier)

	count, err := throttle.client.Incr(context, key).Result()
	if err != nil {
		throttle.logger.Warn("login throttle record failed", slog.String("error", err.Error()))
		return
	}

	if count == 1 {
		if err := throttle.client.Expire(context, key, throttle.window).Err(); err != nil {
			throttle.logger.Warn("login throttle expire failed", slog.String("error", err.Error()))
		}
	}
}

// Clear drops the counter after a successful login.
func (throttle *RedisLoginThrottle) Clear(context context.Context, identifier string) {
	if err := throttle.client.Del(context, throttle.key(identifier)).Err(); err != nil {
		throttle.logger.Warn("login throttle clear failed", slog.String("error", err.Error()))
	}
}

// NoopLoginThrottle satisfies [LoginThrottle] with no bookkeeping. Used in
// tests and in deployments that run without Redis.
type NoopLoginThrottle struct{}

func (NoopLoginThrottle) Allow(context.Context, string) (bool, int) { return true, 0 }
func (NoopLoginThrottle) RecordFailure(context.Context, string)     {}
func (NoopLoginThrottle) Clear(context.Context, string)             {}
