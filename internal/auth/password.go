// Parley - Two-Party Direct Messaging Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parley

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrWrongPassword is returned when a password does not match the stored hash.
var ErrWrongPassword = errors.New("wrong password")

// HashPassword hashes a plaintext password with bcrypt at the given cost.
// bcrypt truncates input at 72 bytes, so longer passwords are rejected
// rather than silently truncated.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > 72 {
		return "", fmt.Errorf("password exceeds bcrypt's 72 byte limit")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a stored bcrypt
// hash. Returns ErrWrongPassword on mismatch.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrWrongPassword
		}
		return fmt.Errorf("failed to compare password: %w", err)
	}
	return nil
}
