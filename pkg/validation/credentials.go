// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for user-supplied command
// arguments. Everything a user types ends up in audit lines, the
// moderator channel, and the snapshot file, so arguments are shape-checked
// before they reach the state machine.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// usernamePattern matches valid in-game usernames: the classic launcher
// rules of 1-16 characters from [A-Za-z0-9_].
var usernamePattern = regexp.MustCompile(`^\w{1,16}$`)

// MaxPasswordLength bounds credentials; anything longer is a paste
// accident, not a password.
const MaxPasswordLength = 64

// ValidateUsername validates an in-game username.
//
// Valid usernames:
//   - 1-16 characters
//   - Letters A-Z a-z, digits 0-9, underscore
//
// Returns an error describing the constraint when invalid.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("invalid username %q (must be 1-16 letters, digits, or underscores)", username)
	}
	return nil
}

// ValidatePassword validates a credential: non-empty, within
// MaxPasswordLength, and free of whitespace (commands are split on
// whitespace, so an embedded space could never round-trip through the
// double-submit confirmation anyway).
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password too long (max %d characters)", MaxPasswordLength)
	}
	if strings.ContainsAny(password, " \t\n") {
		return fmt.Errorf("password cannot contain whitespace")
	}
	return nil
}

// SanitizeUsername trims surrounding whitespace and validates. The
// original case is preserved: in-game names are case-sensitive for
// display even though lookups are not.
func SanitizeUsername(username string) (string, error) {
	trimmed := strings.TrimSpace(username)
	if err := ValidateUsername(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
