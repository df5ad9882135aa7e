// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alice Identity = 1001

// TestProposeLink_DoubleSubmitCommits verifies the happy path: two
// identical proposals link the account.
func TestProposeLink_DoubleSubmitCommits(t *testing.T) {
	m := NewManager()

	outcome, ev := m.ProposeLink(alice, "Steve", "hunter2")
	assert.Equal(t, LinkAwaitingRepeat, outcome)
	assert.Nil(t, ev)

	outcome, ev = m.ProposeLink(alice, "Steve", "hunter2")
	assert.Equal(t, LinkCommitted, outcome)
	require.NotNil(t, ev)
	assert.Equal(t, EventLink, ev.Kind)
	assert.Equal(t, "Steve", ev.Username)
	assert.Equal(t, "hunter2", ev.Password)

	acct, ok := m.Account(alice)
	require.True(t, ok)
	assert.Equal(t, LinkedAccount{Username: "Steve", Password: "hunter2"}, acct)
}

// TestProposeLink_MismatchDiscards verifies that a differing repeat
// discards the pending proposal entirely: the identity stays unlinked and
// the next proposal starts the protocol over.
func TestProposeLink_MismatchDiscards(t *testing.T) {
	tests := []struct {
		name                 string
		username2, password2 string
	}{
		{"username differs", "Alex", "hunter2"},
		{"password differs", "Steve", "letmein"},
		{"both differ", "Alex", "letmein"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			_, _ = m.ProposeLink(alice, "Steve", "hunter2")

			outcome, ev := m.ProposeLink(alice, tt.username2, tt.password2)
			assert.Equal(t, LinkMismatch, outcome)
			assert.Nil(t, ev)

			_, ok := m.Account(alice)
			assert.False(t, ok, "mismatch must not link anything")

			// The discarded proposal is gone: the next submission is a
			// fresh first step, not a confirmation of either earlier one.
			outcome, _ = m.ProposeLink(alice, "Steve", "hunter2")
			assert.Equal(t, LinkAwaitingRepeat, outcome)
		})
	}
}

// TestProposeLink_AlreadyLinked verifies that a linked identity is
// rejected regardless of pending state, and that the rejection does not
// mutate the ledger.
func TestProposeLink_AlreadyLinked(t *testing.T) {
	m := NewManager()
	m.ProposeLink(alice, "Steve", "hunter2")
	m.ProposeLink(alice, "Steve", "hunter2")

	outcome, ev := m.ProposeLink(alice, "Other", "pw")
	assert.Equal(t, LinkAlreadyLinked, outcome)
	assert.Nil(t, ev)

	acct, _ := m.Account(alice)
	assert.Equal(t, "Steve", acct.Username)
	assert.Equal(t, "hunter2", acct.Password)
}

// TestAtMostOneAccount verifies that no sequence of proposals produces a
// second concurrent account for the same identity.
func TestAtMostOneAccount(t *testing.T) {
	m := NewManager()
	m.ProposeLink(alice, "Steve", "a")
	m.ProposeLink(alice, "Steve", "a")
	m.ProposeLink(alice, "Alex", "b")
	m.ProposeLink(alice, "Alex", "b")

	assert.Len(t, m.Accounts(), 1)
	acct, _ := m.Account(alice)
	assert.Equal(t, "Steve", acct.Username)
}

func TestUnlink_RequestThenConfirm(t *testing.T) {
	m := NewManager()
	m.ProposeLink(alice, "Steve", "hunter2")
	m.ProposeLink(alice, "Steve", "hunter2")

	assert.Equal(t, UnlinkAwaitingConfirm, m.RequestUnlink(alice))

	outcome, ev := m.ConfirmUnlink(alice)
	assert.Equal(t, UnlinkCommitted, outcome)
	require.NotNil(t, ev)
	assert.Equal(t, EventUnlink, ev.Kind)
	assert.Equal(t, "Steve", ev.Username)

	_, ok := m.Account(alice)
	assert.False(t, ok)
}

// TestUnlink_ConfirmWithoutRequest verifies the rejection path: no prior
// request means no state change of any kind.
func TestUnlink_ConfirmWithoutRequest(t *testing.T) {
	m := NewManager()
	m.ProposeLink(alice, "Steve", "hunter2")
	m.ProposeLink(alice, "Steve", "hunter2")
	before := m.Stats()

	outcome, ev := m.ConfirmUnlink(alice)
	assert.Equal(t, UnlinkNotRequested, outcome)
	assert.Nil(t, ev)

	_, ok := m.Account(alice)
	assert.True(t, ok, "account must survive a rejected confirm")
	assert.Equal(t, before, m.Stats())
}

func TestUnlink_WithoutAccount(t *testing.T) {
	m := NewManager()
	assert.Equal(t, UnlinkNoAccount, m.RequestUnlink(alice))
}

func TestPasswordChange_PreservesUsername(t *testing.T) {
	m := NewManager()
	m.ProposeLink(alice, "Steve", "old")
	m.ProposeLink(alice, "Steve", "old")

	assert.Equal(t, PasswordAwaitingConfirm, m.ProposePasswordChange(alice, "new"))

	outcome, ev := m.ConfirmPasswordChange(alice)
	assert.Equal(t, PasswordCommitted, outcome)
	require.NotNil(t, ev)
	assert.Equal(t, EventPasswordChange, ev.Kind)
	assert.Equal(t, "Steve", ev.Username)
	assert.Equal(t, "new", ev.Password)

	acct, _ := m.Account(alice)
	assert.Equal(t, "Steve", acct.Username)
	assert.Equal(t, "new", acct.Password)
}

func TestPasswordChange_Rejections(t *testing.T) {
	m := NewManager()

	assert.Equal(t, PasswordNoAccount, m.ProposePasswordChange(alice, "new"))

	m.ProposeLink(alice, "Steve", "old")
	m.ProposeLink(alice, "Steve", "old")
	assert.Equal(t, PasswordEmptyInput, m.ProposePasswordChange(alice, ""))

	outcome, ev := m.ConfirmPasswordChange(alice)
	assert.Equal(t, PasswordNotRequested, outcome)
	assert.Nil(t, ev)

	acct, _ := m.Account(alice)
	assert.Equal(t, "old", acct.Password, "rejections must not touch the credential")
}

// TestPendingKindsAreIndependent verifies that the three pending slots do
// not exclude each other: an unlink marker and a password proposal can
// coexist for one identity. The source system never cross-validated
// these, and this implementation keeps that behavior explicit.
func TestPendingKindsAreIndependent(t *testing.T) {
	m := NewManager()
	m.ProposeLink(alice, "Steve", "old")
	m.ProposeLink(alice, "Steve", "old")

	assert.Equal(t, UnlinkAwaitingConfirm, m.RequestUnlink(alice))
	assert.Equal(t, PasswordAwaitingConfirm, m.ProposePasswordChange(alice, "new"))

	// Confirming the password change leaves the unlink marker in place.
	outcome, _ := m.ConfirmPasswordChange(alice)
	assert.Equal(t, PasswordCommitted, outcome)

	outcome2, _ := m.ConfirmUnlink(alice)
	assert.Equal(t, UnlinkCommitted, outcome2)
}

// TestCounterArithmetic verifies the fixed-step display counters: +10 per
// committed link, +2 per committed unlink. The steps are exact constants,
// not per-event increments.
func TestCounterArithmetic(t *testing.T) {
	m := NewManager()
	base := m.Stats()

	m.ProposeLink(alice, "Steve", "pw")
	m.ProposeLink(alice, "Steve", "pw")
	assert.Equal(t, base.LinkedAccounts+10, m.Stats().LinkedAccounts)

	m.RequestUnlink(alice)
	m.ConfirmUnlink(alice)
	assert.Equal(t, base.UnlinkedAccounts+2, m.Stats().UnlinkedAccounts)
}

// TestRejectionsAreIdempotent verifies that a burst of invalid commands
// leaves the full exported state untouched.
func TestRejectionsAreIdempotent(t *testing.T) {
	m := NewManager()
	m.ProposeLink(alice, "Steve", "pw")
	m.ProposeLink(alice, "Steve", "pw")
	before := m.ExportState()

	m.ConfirmUnlink(alice)             // no request
	m.ConfirmPasswordChange(alice)     // no proposal
	m.ProposePasswordChange(alice, "") // empty input
	m.RequestUnlink(9999)              // no account
	m.ProposeLink(alice, "X", "y")     // already linked

	assert.Equal(t, before, m.ExportState())
}

func TestMarkSeen(t *testing.T) {
	m := NewManager()
	base := m.Stats().UniqueUsers

	assert.True(t, m.MarkSeen(alice), "first /start is new")
	assert.False(t, m.MarkSeen(alice), "repeat /start is not")
	assert.Equal(t, base+1, m.Stats().UniqueUsers)
}

func TestAccountsInsertionOrder(t *testing.T) {
	m := NewManager()
	ids := []Identity{30, 10, 20}
	for _, id := range ids {
		m.ProposeLink(id, "p", "w")
		m.ProposeLink(id, "p", "w")
	}

	entries := m.Accounts()
	require.Len(t, entries, 3)
	for i, id := range ids {
		assert.Equal(t, id, entries[i].Identity)
	}

	// Deleting and relinking moves the identity to the end.
	m.RequestUnlink(30)
	m.ConfirmUnlink(30)
	m.ProposeLink(30, "p", "w")
	m.ProposeLink(30, "p", "w")
	entries = m.Accounts()
	require.Len(t, entries, 3)
	assert.Equal(t, Identity(30), entries[2].Identity)
}

func TestExportRestoreRoundTrip(t *testing.T) {
	m := NewManager()
	m.MarkSeen(alice)
	m.MarkSeen(2002)
	m.ProposeLink(alice, "Steve", "pw")
	m.ProposeLink(alice, "Steve", "pw")
	m.ProposeLink(2002, "Alex", "qq") // left pending
	m.RequestUnlink(alice)
	m.ProposePasswordChange(alice, "next")

	restored := NewManagerFromState(m.ExportState())
	assert.Equal(t, m.ExportState(), restored.ExportState())

	// Pending flows survive the restart.
	outcome, _ := restored.ConfirmUnlink(alice)
	assert.Equal(t, UnlinkCommitted, outcome)
	o2, _ := restored.ProposeLink(2002, "Alex", "qq")
	assert.Equal(t, LinkCommitted, o2)
}

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		in      string
		want    Identity
		wantErr bool
	}{
		{"tg#7563680941", 7563680941, false},
		{"7563680941", 7563680941, false},
		{" tg#42 ", 42, false},
		{"tg#", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseIdentity(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
