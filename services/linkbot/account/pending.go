// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package account

// pendingRecord holds the uncommitted mutations for one identity. The
// three slots are independent: the source system never cross-validated
// them, so an identity may hold an unlink marker and a pending password
// change at the same time. That property is deliberate and tested, not a
// bug to fix here.
//
// Pending entries have no expiry. They live until confirmed, discarded by
// a mismatched link repeat, or the state is cleared by an operator.
type pendingRecord struct {
	// link is the first /link proposal, awaiting an identical repeat.
	// Mutually exclusive with a LinkedAccount for the same identity:
	// proposals are only accepted while no account is linked.
	link *LinkedAccount

	// unlink marks that /unlink was requested and /confirmunlink is
	// awaited. Only ever set while an account is linked.
	unlink bool

	// newPassword is the proposed credential from /changepassword,
	// applied on /confirmpassword. Empty means no pending change.
	newPassword string
}

// empty reports whether the record carries no pending state and can be
// dropped from the table.
func (p *pendingRecord) empty() bool {
	return p.link == nil && !p.unlink && p.newPassword == ""
}

// pendingTable maps identities to their pending records. Records are
// created lazily and removed as soon as they become empty so the table
// only holds identities with live pending state.
type pendingTable map[Identity]*pendingRecord

func (t pendingTable) get(id Identity) *pendingRecord {
	return t[id]
}

func (t pendingTable) ensure(id Identity) *pendingRecord {
	rec := t[id]
	if rec == nil {
		rec = &pendingRecord{}
		t[id] = rec
	}
	return rec
}

// compact drops the record if it no longer holds any pending state.
func (t pendingTable) compact(id Identity) {
	if rec := t[id]; rec != nil && rec.empty() {
		delete(t, id)
	}
}
