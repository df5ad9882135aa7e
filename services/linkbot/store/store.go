// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists the full process-wide state to a single
// human-inspectable JSON snapshot file and restores it at startup.
//
// The model is periodic best-effort snapshotting, not transactional
// durability: a mutation that commits between flushes and is lost to a
// crash is an accepted risk. Unlike the original deployment, which
// overwrote the file in place, Save writes to a temporary file and
// renames it over the target so a crash mid-write can never leave a
// truncated snapshot. This changes crash-recovery behavior versus the
// original and is intentional.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reallyworld/linkbot/services/linkbot/account"
	"github.com/reallyworld/linkbot/services/linkbot/status"
)

// -----------------------------------------------------------------------------
// Metrics
// -----------------------------------------------------------------------------

var (
	snapshotSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkbot_snapshot_saves_total",
		Help: "Snapshot save attempts by outcome",
	}, []string{"status"})

	snapshotSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "linkbot_snapshot_save_duration_seconds",
		Help:    "Time to serialize and persist the state snapshot",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	})
)

// -----------------------------------------------------------------------------
// Snapshot
// -----------------------------------------------------------------------------

// DefaultNews is the news line used when no snapshot exists.
const DefaultNews = "No news yet. Watch this space for updates!"

// Snapshot is the full serialized process state: the account package's
// state plus the slow-changing display fields. Field names line up with
// the original deployment's data.json so existing files restore cleanly.
type Snapshot struct {
	account.State
	ServerNews   string        `json:"serverNews"`
	ServerStatus status.Status `json:"serverStatus"`
}

// DefaultSnapshot is the built-in state used when the data file is absent
// or unreadable.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		State:        account.EmptyState(),
		ServerNews:   DefaultNews,
		ServerStatus: status.DefaultStatus(),
	}
}

// -----------------------------------------------------------------------------
// Store
// -----------------------------------------------------------------------------

// SnapshotFunc assembles the current process state for persistence. The
// function type decouples the store from the Manager and trackers so
// tests can inject fixed snapshots.
type SnapshotFunc func() Snapshot

// Store loads and saves the snapshot file.
type Store struct {
	path     string
	snapshot SnapshotFunc
}

// New creates a Store writing to path. The snapshot function is consulted
// on every Save.
func New(path string, snapshot SnapshotFunc) *Store {
	return &Store{path: path, snapshot: snapshot}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the snapshot file.
//
// # Description
//
// Startup must never fail on persistence problems, so Load degrades
// instead of erroring: an absent file yields the built-in defaults
// silently, and an unreadable or malformed file is logged and likewise
// yields defaults. On success the derived unique-user display counter is
// recomputed from the seen set rather than trusted from the file.
func (s *Store) Load() Snapshot {
	snap, err := ReadSnapshot(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Info("No data file found, starting from defaults", "path", s.path)
		} else {
			slog.Error("Failed to load data file, starting from defaults", "path", s.path, "error", err)
		}
		return DefaultSnapshot()
	}
	slog.Info("Data file loaded", "path", s.path,
		"linked_accounts", len(snap.LinkedAccounts), "seen_identities", len(snap.SeenIdentities))
	return snap
}

// Save serializes the current state and atomically replaces the snapshot
// file. Errors are returned for the caller to log; the process never
// stops over a failed save.
func (s *Store) Save() error {
	timer := prometheus.NewTimer(snapshotSaveDuration)
	defer timer.ObserveDuration()

	err := s.save()
	if err != nil {
		snapshotSaves.WithLabelValues("error").Inc()
		return err
	}
	snapshotSaves.WithLabelValues("success").Inc()
	return nil
}

func (s *Store) save() error {
	snap := s.snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".data-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot parses a snapshot file without the soft-failure handling
// of Load. Used by Load itself and by the linkctl inspection CLI, which
// wants the parse error.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}

	snap := DefaultSnapshot()
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("malformed snapshot: %w", err)
	}
	if snap.LinkedAccounts == nil {
		snap.LinkedAccounts = map[account.Identity]account.LinkedAccount{}
	}
	if snap.PendingLinks == nil {
		snap.PendingLinks = map[account.Identity]account.LinkedAccount{}
	}
	if snap.PendingUnlinks == nil {
		snap.PendingUnlinks = map[account.Identity]bool{}
	}
	if snap.PendingPasswordChanges == nil {
		snap.PendingPasswordChanges = map[account.Identity]string{}
	}

	// The stored display counter drifts; derive it from the seen set.
	snap.RecomputeUniqueUsers()
	return snap, nil
}
