// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package account owns the mutable account-link state of the bot: the
// ledger of linked game accounts, the per-identity pending mutations, the
// seen-identity set, and the display statistics.
//
// All state lives behind a single Manager guarded by one mutex. Every
// mutation goes through a two-step propose/confirm protocol; the Manager
// decides outcomes but performs no I/O — notification fanout and snapshot
// flushes are the caller's job, driven by the Event a commit returns.
package account

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Identity is the stable key for a messaging participant (a Telegram chat
// ID). Identities are never reused across participants; equality is exact.
type Identity int64

// String renders the identity in the user-visible "tg#<id>" form used in
// welcome messages, audit lines, and the moderator /reply command.
func (id Identity) String() string {
	return fmt.Sprintf("tg#%d", int64(id))
}

// ParseIdentity parses an identity reference. Both the bare numeric form
// ("7563680941") and the prefixed form ("tg#7563680941") are accepted.
func ParseIdentity(s string) (Identity, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "tg#")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identity reference %q: %w", s, err)
	}
	return Identity(n), nil
}

// LinkedAccount is the committed association between an identity and an
// in-game username/password pair. At most one exists per identity. The
// password is held in plaintext: the source workflow forwards it verbatim
// to a human moderator, so hashing here would break observable behavior.
// This boundary is flagged in DESIGN.md rather than silently hardened.
type LinkedAccount struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Stats are the display counters shown by /stats. They are cosmetic: no
// control decision reads them, and their increments are fixed constants
// per event rather than +1 (see linkStatsStep and unlinkStatsStep).
type Stats struct {
	UniqueUsers      int `json:"uniqueUsers"`
	LinkedAccounts   int `json:"linkedAccounts"`
	UnlinkedAccounts int `json:"unlinkedAccounts"`
}

// Display counter arithmetic. The base and step values come from the
// production deployment; UniqueUsers is always recomputed as
// uniqueUserBase + len(seen) and the stored value is never trusted.
const (
	uniqueUserBase  = 13598
	linkStatsStep   = 10
	unlinkStatsStep = 2
)

// DefaultStats returns the built-in display counters used when no snapshot
// exists yet.
func DefaultStats() Stats {
	return Stats{
		UniqueUsers:      uniqueUserBase,
		LinkedAccounts:   5789,
		UnlinkedAccounts: 248,
	}
}

// EventKind identifies which mutation a committed Event describes.
type EventKind int

const (
	// EventLink is a committed account link (ledger create).
	EventLink EventKind = iota

	// EventUnlink is a committed account removal (ledger delete).
	EventUnlink

	// EventPasswordChange is a committed in-place credential update.
	EventPasswordChange
)

// String returns the audit-facing name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventLink:
		return "link"
	case EventUnlink:
		return "unlink"
	case EventPasswordChange:
		return "password_change"
	default:
		return "unknown"
	}
}

// Event describes a single committed mutation. Exactly one Event is
// produced per successful confirmation, and none for rejections. The
// router feeds committed events to the notification fanout and triggers a
// snapshot flush.
type Event struct {
	Kind     EventKind
	Identity Identity
	Username string

	// Password is set for link and password-change events. Plaintext by
	// fidelity to the source workflow; see LinkedAccount.
	Password string

	Time time.Time
}

// Entry pairs an identity with its linked account for ledger listings.
type Entry struct {
	Identity Identity
	Account  LinkedAccount
}
