// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package notify delivers committed-mutation and moderator-contact
// notifications: a confirmation back to the acting identity, an audit
// line to the moderator channel, and an append to the plaintext audit
// file. The three dispatches are independent; one failing never blocks
// the others.
package notify

import (
	"fmt"
	"os"
	"sync"
)

// auditFileMode restricts the audit file to the service owner. The file
// carries usernames and plaintext credentials, which is a known weakness
// of the workflow being reproduced; file permissions are the one
// hardening that does not change observable behavior.
const auditFileMode = 0o600

// AuditFile appends timestamped lines to an append-only plaintext file.
//
// # Thread Safety
//
// Append is serialized by a mutex so concurrent commits cannot interleave
// partial lines.
type AuditFile struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// OpenAuditFile opens (creating if needed) the audit file in append mode.
func OpenAuditFile(path string) (*AuditFile, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, auditFileMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	return &AuditFile{file: file, path: path}, nil
}

// Append writes one line. The caller composes the full timestamped text.
func (a *AuditFile) Append(line string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := fmt.Fprintln(a.file, line); err != nil {
		return fmt.Errorf("failed to append audit line: %w", err)
	}
	return nil
}

// Close syncs and closes the underlying file.
func (a *AuditFile) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.file.Sync(); err != nil {
		a.file.Close()
		return fmt.Errorf("failed to sync audit file: %w", err)
	}
	return a.file.Close()
}
