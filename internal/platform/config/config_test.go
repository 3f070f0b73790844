// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtd/accountd/internal/platform/config"
	"github.com/quangtd/accountd/internal/platform/constants"
)

// setRequiredEnv provides the minimum environment Load needs to succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/accountd_test")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("TOKEN_SECRET", "config-test-secret")
}

/*
TestLoad_Defaults verifies that unset optional variables fall back to their
documented defaults, including the token lifetime.
*/
func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_TTL", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	// 1. Token lifetime falls back to the shared constant
	assert.Equal(t, constants.DefaultTokenTTL, cfg.TokenTTL)

	// 2. Server defaults
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	// 3. Outage policy defaults to the degrading (legacy-compatible) mode
	assert.False(t, cfg.StrictAvailability)
}

/*
TestLoad_TokenTTLOverride verifies that an explicit TOKEN_TTL wins over the
default.
*/
func TestLoad_TokenTTLOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TOKEN_TTL", "1h")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.TokenTTL)
}

/*
TestConfig_AllowedOrigins verifies the EXTRA_ORIGINS parsing: comma split,
whitespace trimmed, empty entries dropped.
*/
func TestConfig_AllowedOrigins(t *testing.T) {
	cfg := &config.Config{ExtraOrigins: "https://admin.example.com, https://partner.example.com ,,"}
	assert.Equal(t,
		[]string{"https://admin.example.com", "https://partner.example.com"},
		cfg.AllowedOrigins(),
	)

	empty := &config.Config{}
	assert.Nil(t, empty.AllowedOrigins())
}
