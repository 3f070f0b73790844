// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer behind small interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims represents the payload embedded inside a session token.
//
// The subject is the account's email address; the role is carried so callers
// can log and route on it, but authorization decisions always re-fetch the
// live account — token claims may be stale by the time they are presented.
type SessionClaims struct {
	jwt.RegisteredClaims

	// Role is the account's role at issuance time.
	Role string `json:"rol"`
}

// TokenCodec signs and verifies compact session tokens using HS256.
//
// The signing secret is process-wide configuration, loaded once at startup.
// Rotating it invalidates every previously issued token — an accepted
// tradeoff; there is no key-rollover support.
type TokenCodec struct {
	secret []byte
	issuer string
}

// NewTokenCodec creates a TokenCodec from the process-wide signing secret.
func NewTokenCodec(secret, issuer string) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("sec: signing secret must not be empty")
	}
	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
	}, nil
}

// Issue builds and signs a session token for the given subject.
//
// # Parameters
//   - subject: The account email the token is bound to.
//   - role: The account role at issuance time.
//   - timeToLive: The duration before the token expires.
//
// # Returns
//   - A signed compact JWT string, or an error if signing fails.
func (codec *TokenCodec) Issue(subject, role string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity of a session token string.
//
// It rejects tokens that are malformed, signed with a different algorithm
// (alg confusion), carry an invalid signature, or have passed their expiry.
// Callers must branch on the returned error — never assume success.
func (codec *TokenCodec) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return codec.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("sec: invalid token claims")
	}

	return claims, nil
}
