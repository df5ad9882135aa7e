// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesDatedJSONFile(t *testing.T) {
	dir := t.TempDir()
	logger, closeLog := Setup(Config{Dir: dir, Service: "linkbot-test"})

	logger.Info("command handled", "command", "/start", "chat_id", 1001)
	require.NoError(t, closeLog())

	name := fmt.Sprintf("linkbot-test_%s.log", time.Now().Format("2006-01-02"))
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &record))
	assert.Equal(t, "command handled", record["msg"])
	assert.Equal(t, "/start", record["command"])
	assert.Equal(t, "linkbot-test", record["service"])
}

func TestSetup_StderrOnlyWithoutDir(t *testing.T) {
	logger, closeLog := Setup(Config{Service: "linkbot-test"})
	logger.Info("no file configured")
	assert.NoError(t, closeLog())
}

func TestSetup_BadDirDegradesToStderr(t *testing.T) {
	// A file where the directory should be makes MkdirAll fail.
	base := t.TempDir()
	blocked := filepath.Join(base, "taken")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	logger, closeLog := Setup(Config{Dir: filepath.Join(blocked, "logs"), Service: "linkbot-test"})
	logger.Info("still alive")
	assert.NoError(t, closeLog())
}
