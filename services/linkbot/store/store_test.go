// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reallyworld/linkbot/services/linkbot/account"
	"github.com/reallyworld/linkbot/services/linkbot/status"
)

// populatedSnapshot builds a snapshot with every kind of state filled in.
func populatedSnapshot() Snapshot {
	m := account.NewManager()
	m.MarkSeen(1001)
	m.MarkSeen(2002)
	m.MarkSeen(3003)
	m.ProposeLink(1001, "Steve", "pw1")
	m.ProposeLink(1001, "Steve", "pw1")
	m.ProposeLink(2002, "Alex", "pw2") // pending link
	m.RequestUnlink(1001)
	m.ProposePasswordChange(1001, "next")

	return Snapshot{
		State:        m.ExportState(),
		ServerNews:   "Wipe on March 1!",
		ServerStatus: status.Status{Online: true, Players: 42, MaxPlayers: 7500, Version: status.GameVersion},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	want := populatedSnapshot()

	s := New(path, func() Snapshot { return want })
	require.NoError(t, s.Save())

	got := New(path, nil).Load()
	assert.Equal(t, want.LinkedAccounts, got.LinkedAccounts)
	assert.Equal(t, want.LinkedOrder, got.LinkedOrder)
	assert.Equal(t, want.PendingLinks, got.PendingLinks)
	assert.Equal(t, want.PendingUnlinks, got.PendingUnlinks)
	assert.Equal(t, want.PendingPasswordChanges, got.PendingPasswordChanges)
	assert.Equal(t, want.SeenIdentities, got.SeenIdentities)
	assert.Equal(t, want.ServerNews, got.ServerNews)
	assert.Equal(t, want.ServerStatus, got.ServerStatus)
}

// TestLoad_RecomputesUniqueUsers verifies the derived-counter rule: the
// stored uniqueUsers display value is ignored and recomputed from the
// seen set (base 13598 + 3 seen identities here).
func TestLoad_RecomputesUniqueUsers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	snap := populatedSnapshot()
	snap.Stats.UniqueUsers = 999999 // drifted value on disk

	s := New(path, func() Snapshot { return snap })
	require.NoError(t, s.Save())

	got := New(path, nil).Load()
	assert.Equal(t, 13598+3, got.Stats.UniqueUsers)
	// The other counters are round-tripped as stored.
	assert.Equal(t, snap.Stats.LinkedAccounts, got.Stats.LinkedAccounts)
	assert.Equal(t, snap.Stats.UnlinkedAccounts, got.Stats.UnlinkedAccounts)
}

func TestLoad_AbsentFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	got := New(path, nil).Load()
	assert.Equal(t, DefaultSnapshot(), got)
	assert.Equal(t, 13598, got.Stats.UniqueUsers)
	assert.Equal(t, 5789, got.Stats.LinkedAccounts)
	assert.Equal(t, 248, got.Stats.UnlinkedAccounts)
	assert.Equal(t, DefaultNews, got.ServerNews)
}

// TestLoad_MalformedFileYieldsDefaults verifies the soft-failure rule:
// a corrupt data file must not prevent startup.
func TestLoad_MalformedFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o644))

	got := New(path, nil).Load()
	assert.Equal(t, DefaultSnapshot(), got)

	_, err := ReadSnapshot(path)
	assert.Error(t, err, "ReadSnapshot surfaces the parse error for linkctl")
}

// TestSave_AtomicReplace verifies that a save leaves no temp droppings
// and fully replaces the previous content.
func TestSave_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	first := DefaultSnapshot()
	s := New(path, func() Snapshot { return first })
	require.NoError(t, s.Save())

	second := populatedSnapshot()
	s2 := New(path, func() Snapshot { return second })
	require.NoError(t, s2.Save())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not linger")
	assert.Equal(t, "data.json", entries[0].Name())

	got := New(path, nil).Load()
	assert.Equal(t, second.LinkedAccounts, got.LinkedAccounts)
}

// TestManagerRestartFidelity runs the full restart path: Manager ->
// snapshot -> disk -> snapshot -> Manager, and compares exported state.
func TestManagerRestartFidelity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	snap := populatedSnapshot()

	s := New(path, func() Snapshot { return snap })
	require.NoError(t, s.Save())

	loaded := New(path, nil).Load()
	restored := account.NewManagerFromState(loaded.State)

	assert.Equal(t, snap.State, restored.ExportState())
}

func TestFlusher_StartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s := New(path, func() Snapshot { return DefaultSnapshot() })
	f := NewFlusher(s, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.Start(ctx))
	assert.Error(t, f.Start(ctx), "second start must be rejected")

	f.Stop()

	// Stop performs the final synchronous save.
	_, err := os.Stat(path)
	assert.NoError(t, err)

	f.Stop() // idempotent
}
