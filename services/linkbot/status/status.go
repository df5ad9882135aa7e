// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package status tracks the game server's public status. A background
// poller refreshes it from the mcstatus.io API; readers always get the
// last known value, so a failing API degrades to stale-but-available
// rather than blocking command handling.
package status

import (
	"sync"
)

// GameVersion is the advertised client version range. The status API
// reports a raw version string we don't display; the deployment pins this
// range instead.
const GameVersion = "1.16.5 - 1.21"

// Status is the displayable server state. Player counts are only
// meaningful when Online is true.
type Status struct {
	Online     bool   `json:"online"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
}

// DefaultStatus is the built-in value used before the first successful
// poll and when no snapshot exists.
func DefaultStatus() Status {
	return Status{Online: true, Players: 975, MaxPlayers: 7500, Version: GameVersion}
}

// Tracker holds the current Status behind a mutex. The poller writes it,
// command handlers and the snapshot store read it.
type Tracker struct {
	mu      sync.Mutex
	current Status
}

// NewTracker creates a Tracker seeded with the given status (typically
// from the loaded snapshot).
func NewTracker(initial Status) *Tracker {
	return &Tracker{current: initial}
}

// Current returns the last known status.
func (t *Tracker) Current() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Set replaces the tracked status.
func (t *Tracker) Set(s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = s
}
