// Copyright (c) 2026 Accountd. All rights reserved.
// Author: quang.tran.dev@gmail.com

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptInputLimit is the maximum number of password bytes bcrypt consumes.
// Anything beyond this is ignored by the algorithm family, so we truncate
// explicitly on both the hash and verify paths to keep them symmetric.
const bcryptInputLimit = 72

// truncatePassword bounds the UTF-8 encoded password at bcrypt's input limit.
func truncatePassword(plainTextPassword string) []byte {
	passwordBytes := []byte(plainTextPassword)
	if len(passwordBytes) > bcryptInputLimit {
		passwordBytes = passwordBytes[:bcryptInputLimit]
	}
	return passwordBytes
}

// HashPassword hashes a plain-text password using the bcrypt algorithm.
//
// Each call generates a fresh random salt, so hashing the same password twice
// produces different hashes. Input longer than 72 bytes is truncated first —
// a documented limitation of bcrypt, preserved for compatibility.
func HashPassword(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword(truncatePassword(plainTextPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
//
// It applies the same 72-byte truncation as [HashPassword]. Any failure —
// mismatch, malformed hash, internal error — is reported as false and never
// propagated to the caller.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), truncatePassword(plainTextPassword))
	return err == nil
}
