// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package account

import (
	"sync"
	"time"
)

// =============================================================================
// Outcomes
// =============================================================================

// LinkOutcome is the result of a /link proposal.
type LinkOutcome int

const (
	// LinkAlreadyLinked rejects a proposal while an account is linked,
	// independent of any pending state.
	LinkAlreadyLinked LinkOutcome = iota

	// LinkAwaitingRepeat means the proposal was stored and the identity
	// must resend identical arguments to confirm.
	LinkAwaitingRepeat

	// LinkCommitted means the repeated proposal matched and the account
	// is now linked.
	LinkCommitted

	// LinkMismatch means the repeated proposal differed from the stored
	// one. The pending proposal is discarded; the identity restarts from
	// the beginning.
	LinkMismatch
)

// UnlinkOutcome is the result of an /unlink request or /confirmunlink.
type UnlinkOutcome int

const (
	// UnlinkNoAccount rejects a request when nothing is linked.
	UnlinkNoAccount UnlinkOutcome = iota

	// UnlinkAwaitingConfirm means the removal request was recorded and
	// /confirmunlink is awaited.
	UnlinkAwaitingConfirm

	// UnlinkNotRequested rejects a confirm without a prior request.
	UnlinkNotRequested

	// UnlinkCommitted means the account was removed.
	UnlinkCommitted
)

// PasswordOutcome is the result of a /changepassword proposal or
// /confirmpassword.
type PasswordOutcome int

const (
	// PasswordNoAccount rejects a proposal when nothing is linked.
	PasswordNoAccount PasswordOutcome = iota

	// PasswordEmptyInput rejects an empty proposed credential.
	PasswordEmptyInput

	// PasswordAwaitingConfirm means the new credential was recorded and
	// /confirmpassword is awaited.
	PasswordAwaitingConfirm

	// PasswordNotRequested rejects a confirm without a pending change.
	PasswordNotRequested

	// PasswordCommitted means the credential was replaced in place.
	PasswordCommitted
)

// =============================================================================
// Manager
// =============================================================================

// Manager is the single owner of all account-link state.
//
// # Description
//
// Manager serializes every read and write through one mutex, giving the
// single-writer discipline the invariants require: commands may arrive
// from a genuinely parallel transport, but state transitions observe a
// consistent view. No internal map ever escapes; accessors return copies.
//
// Mutating operations implement the two-step confirmation protocol:
// propose stores intent, confirm commits it. Exactly one ledger mutation
// happens per committed confirmation, and a rejection never mutates
// anything — not the ledger, not the pending table, not the counters.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	ledger  ledger
	pending pendingTable
	seen    map[Identity]struct{}
	stats   Stats
}

// NewManager creates a Manager with empty state and default display
// counters.
func NewManager() *Manager {
	return &Manager{
		ledger:  newLedger(),
		pending: make(pendingTable),
		seen:    make(map[Identity]struct{}),
		stats:   DefaultStats(),
	}
}

// NewManagerFromState restores a Manager from snapshot state.
//
// # Description
//
// Rebuilds the ledger (preserving insertion order), the three pending
// kinds, and the seen set. The UniqueUsers display counter is always
// recomputed as base + len(seen): the stored value can drift and is never
// trusted (the original deployment recomputed it the same way on load).
func NewManagerFromState(st State) *Manager {
	m := &Manager{
		ledger:  restoreLedger(st.LinkedAccounts, st.LinkedOrder),
		pending: make(pendingTable),
		seen:    make(map[Identity]struct{}, len(st.SeenIdentities)),
		stats:   st.Stats,
	}
	for id, acct := range st.PendingLinks {
		proposal := acct
		m.pending.ensure(id).link = &proposal
	}
	for id, requested := range st.PendingUnlinks {
		if requested {
			m.pending.ensure(id).unlink = true
		}
	}
	for id, pw := range st.PendingPasswordChanges {
		if pw != "" {
			m.pending.ensure(id).newPassword = pw
		}
	}
	for _, id := range st.SeenIdentities {
		m.seen[id] = struct{}{}
	}
	m.stats.UniqueUsers = uniqueUserBase + len(m.seen)
	return m
}

// =============================================================================
// Link: propose with double submission
// =============================================================================

// ProposeLink handles a /link <username> <password> submission.
//
// # Description
//
// Implements the double-submit confirmation: the first proposal is stored
// and the identity is asked to resend identical arguments; the second
// proposal commits if and only if both username and password match the
// stored values exactly. A mismatch discards the stored proposal — the
// identity restarts from the beginning, nothing is merged or retried.
//
// An identity that already has a linked account is rejected outright,
// regardless of pending state.
//
// # Outputs
//
//   - LinkOutcome: the state-machine decision.
//   - *Event: non-nil only for LinkCommitted.
func (m *Manager) ProposeLink(id Identity, username, password string) (LinkOutcome, *Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, linked := m.ledger.get(id); linked {
		return LinkAlreadyLinked, nil
	}

	rec := m.pending.get(id)
	if rec == nil || rec.link == nil {
		m.pending.ensure(id).link = &LinkedAccount{Username: username, Password: password}
		return LinkAwaitingRepeat, nil
	}

	if rec.link.Username != username || rec.link.Password != password {
		rec.link = nil
		m.pending.compact(id)
		return LinkMismatch, nil
	}

	acct := *rec.link
	m.ledger.create(id, acct)
	m.stats.LinkedAccounts += linkStatsStep
	rec.link = nil
	m.pending.compact(id)
	return LinkCommitted, &Event{
		Kind:     EventLink,
		Identity: id,
		Username: acct.Username,
		Password: acct.Password,
		Time:     time.Now(),
	}
}

// =============================================================================
// Unlink: request then confirm
// =============================================================================

// RequestUnlink handles /unlink. It requires a linked account and records
// the removal request; nothing is destroyed until ConfirmUnlink.
func (m *Manager) RequestUnlink(id Identity) UnlinkOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, linked := m.ledger.get(id); !linked {
		return UnlinkNoAccount
	}
	m.pending.ensure(id).unlink = true
	return UnlinkAwaitingConfirm
}

// ConfirmUnlink handles /confirmunlink.
//
// # Description
//
// Requires a prior RequestUnlink. On confirmation the linked account is
// destroyed, the pending marker cleared, and the unlinked display counter
// stepped. Confirming without a request is rejected and changes nothing.
func (m *Manager) ConfirmUnlink(id Identity) (UnlinkOutcome, *Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.pending.get(id)
	if rec == nil || !rec.unlink {
		return UnlinkNotRequested, nil
	}

	acct, _ := m.ledger.get(id)
	m.ledger.delete(id)
	rec.unlink = false
	m.pending.compact(id)
	m.stats.UnlinkedAccounts += unlinkStatsStep
	return UnlinkCommitted, &Event{
		Kind:     EventUnlink,
		Identity: id,
		Username: acct.Username,
		Time:     time.Now(),
	}
}

// =============================================================================
// Password change: propose then confirm
// =============================================================================

// ProposePasswordChange handles /changepassword <password>. It requires a
// linked account and a non-empty credential; the proposal is held until
// ConfirmPasswordChange.
func (m *Manager) ProposePasswordChange(id Identity, newPassword string) PasswordOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, linked := m.ledger.get(id); !linked {
		return PasswordNoAccount
	}
	if newPassword == "" {
		return PasswordEmptyInput
	}
	m.pending.ensure(id).newPassword = newPassword
	return PasswordAwaitingConfirm
}

// ConfirmPasswordChange handles /confirmpassword. The stored proposal is
// applied in place: the username is preserved and only the credential
// changes.
func (m *Manager) ConfirmPasswordChange(id Identity) (PasswordOutcome, *Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.pending.get(id)
	if rec == nil || rec.newPassword == "" {
		return PasswordNotRequested, nil
	}

	newPassword := rec.newPassword
	acct, _ := m.ledger.get(id)
	m.ledger.updatePassword(id, newPassword)
	rec.newPassword = ""
	m.pending.compact(id)
	return PasswordCommitted, &Event{
		Kind:     EventPasswordChange,
		Identity: id,
		Username: acct.Username,
		Password: newPassword,
		Time:     time.Now(),
	}
}

// =============================================================================
// Reads and bookkeeping
// =============================================================================

// Account returns the linked account for the identity, if any.
func (m *Manager) Account(id Identity) (LinkedAccount, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.get(id)
}

// Accounts lists all linked accounts in insertion order.
func (m *Manager) Accounts() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.list()
}

// Stats returns a copy of the display counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// MarkSeen records that the identity issued /start. Returns true the
// first time an identity is seen; the caller uses that to trigger an
// immediate snapshot save. The UniqueUsers display counter tracks
// base + len(seen).
func (m *Manager) MarkSeen(id Identity) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[id]; ok {
		return false
	}
	m.seen[id] = struct{}{}
	m.stats.UniqueUsers = uniqueUserBase + len(m.seen)
	return true
}
