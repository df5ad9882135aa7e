// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUsername(t *testing.T) {
	valid := []string{"Steve", "x", "Herobrine_02", "a234567890123456"}
	for _, u := range valid {
		assert.NoError(t, ValidateUsername(u), u)
	}

	invalid := []string{"", "name with space", "toolongusername12345", "bad-dash", "семен", "nick!"}
	for _, u := range invalid {
		assert.Error(t, ValidateUsername(u), u)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("hunter2"))
	assert.NoError(t, ValidatePassword(strings.Repeat("a", MaxPasswordLength)))

	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword(strings.Repeat("a", MaxPasswordLength+1)))
	assert.Error(t, ValidatePassword("has space"))
}

func TestSanitizeUsername(t *testing.T) {
	got, err := SanitizeUsername("  Steve ")
	require.NoError(t, err)
	assert.Equal(t, "Steve", got)

	_, err = SanitizeUsername("   ")
	assert.Error(t, err)
}
