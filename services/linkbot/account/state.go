// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package account

import "sort"

// State is the serializable form of a Manager's contents. It is a plain
// data-transfer struct: the store package embeds it in the snapshot file
// and the Manager is rebuilt from it at startup via NewManagerFromState.
//
// JSON field names match the original deployment's data file so an
// existing data.json restores cleanly. The seen set is stored under
// "uniqueUsers" (an array of identities) for the same reason; the display
// counter of the same name lives inside "stats" and is recomputed on load.
type State struct {
	LinkedAccounts         map[Identity]LinkedAccount `json:"linkedAccounts"`
	LinkedOrder            []Identity                 `json:"linkedOrder,omitempty"`
	PendingLinks           map[Identity]LinkedAccount `json:"pendingLinks"`
	PendingUnlinks         map[Identity]bool          `json:"pendingUnlinks"`
	PendingPasswordChanges map[Identity]string        `json:"pendingPasswordChanges"`
	SeenIdentities         []Identity                 `json:"uniqueUsers"`
	Stats                  Stats                      `json:"stats"`
}

// EmptyState returns a State with allocated maps and default counters,
// suitable as the built-in startup default when no snapshot exists.
func EmptyState() State {
	return State{
		LinkedAccounts:         make(map[Identity]LinkedAccount),
		PendingLinks:           make(map[Identity]LinkedAccount),
		PendingUnlinks:         make(map[Identity]bool),
		PendingPasswordChanges: make(map[Identity]string),
		Stats:                  DefaultStats(),
	}
}

// RecomputeUniqueUsers derives the unique-user display counter from the
// seen set. Loaders call this instead of trusting the stored value, which
// can drift.
func (st *State) RecomputeUniqueUsers() {
	st.Stats.UniqueUsers = uniqueUserBase + len(st.SeenIdentities)
}

// ExportState returns a deep copy of the Manager's current contents.
// The seen-identity slice is sorted so repeated exports of identical
// state serialize identically.
func (m *Manager) ExportState() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := State{
		LinkedAccounts:         make(map[Identity]LinkedAccount, m.ledger.size()),
		LinkedOrder:            make([]Identity, len(m.ledger.order)),
		PendingLinks:           make(map[Identity]LinkedAccount),
		PendingUnlinks:         make(map[Identity]bool),
		PendingPasswordChanges: make(map[Identity]string),
		SeenIdentities:         make([]Identity, 0, len(m.seen)),
		Stats:                  m.stats,
	}
	for id, acct := range m.ledger.accounts {
		st.LinkedAccounts[id] = acct
	}
	copy(st.LinkedOrder, m.ledger.order)
	for id, rec := range m.pending {
		if rec.link != nil {
			st.PendingLinks[id] = *rec.link
		}
		if rec.unlink {
			st.PendingUnlinks[id] = true
		}
		if rec.newPassword != "" {
			st.PendingPasswordChanges[id] = rec.newPassword
		}
	}
	for id := range m.seen {
		st.SeenIdentities = append(st.SeenIdentities, id)
	}
	sort.Slice(st.SeenIdentities, func(i, j int) bool {
		return st.SeenIdentities[i] < st.SeenIdentities[j]
	})
	return st
}
