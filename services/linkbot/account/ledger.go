// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package account

import "sort"

// ledger is the authoritative identity -> LinkedAccount record. It keeps
// insertion order so that listings are stable across calls and restarts.
// It is not safe for concurrent use on its own; the Manager serializes
// access to it.
type ledger struct {
	accounts map[Identity]LinkedAccount
	order    []Identity
}

func newLedger() ledger {
	return ledger{accounts: make(map[Identity]LinkedAccount)}
}

func (l *ledger) get(id Identity) (LinkedAccount, bool) {
	acct, ok := l.accounts[id]
	return acct, ok
}

// create adds a new entry. Precondition: id is absent. A second create for
// the same identity is a programming error upstream, so it is ignored
// rather than corrupting insertion order.
func (l *ledger) create(id Identity, acct LinkedAccount) {
	if _, ok := l.accounts[id]; ok {
		return
	}
	l.accounts[id] = acct
	l.order = append(l.order, id)
}

// updatePassword replaces the credential in place, preserving the
// username. Precondition: id is present.
func (l *ledger) updatePassword(id Identity, password string) {
	acct, ok := l.accounts[id]
	if !ok {
		return
	}
	acct.Password = password
	l.accounts[id] = acct
}

// delete removes the entry and its position in the insertion order.
func (l *ledger) delete(id Identity) {
	if _, ok := l.accounts[id]; !ok {
		return
	}
	delete(l.accounts, id)
	for i, other := range l.order {
		if other == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// list returns all entries in insertion order. The returned slice and its
// contents are copies; callers cannot reach the internal map.
func (l *ledger) list() []Entry {
	entries := make([]Entry, 0, len(l.order))
	for _, id := range l.order {
		entries = append(entries, Entry{Identity: id, Account: l.accounts[id]})
	}
	return entries
}

func (l *ledger) size() int {
	return len(l.accounts)
}

// restore rebuilds the ledger from snapshot data. Identities present in
// the accounts map but missing from the recorded order (snapshots written
// before order tracking) are appended in numeric order for determinism.
func restoreLedger(accounts map[Identity]LinkedAccount, order []Identity) ledger {
	l := newLedger()
	for _, id := range order {
		if acct, ok := accounts[id]; ok {
			l.create(id, acct)
		}
	}
	var missing []Identity
	for id := range accounts {
		if _, ok := l.accounts[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	for _, id := range missing {
		l.create(id, accounts[id])
	}
	return l
}
