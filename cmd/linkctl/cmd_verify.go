// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/reallyworld/linkbot/services/linkbot/account"
	"github.com/reallyworld/linkbot/services/linkbot/store"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a snapshot file's internal consistency",
	Long: `verify decodes the snapshot as stored, without the load-time fixups
the bot applies, and reports drift: a stale unique-user counter, order
entries without accounts, pending confirmations for unlinked identities.
Exits non-zero when any problem is found.`,
	Run: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) {
	path := snapshotPath()
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Error reading snapshot: %v", err)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		log.Fatalf("Error decoding snapshot: %v", err)
	}

	problems := verifySnapshot(snap)
	if len(problems) == 0 {
		fmt.Printf("%s: OK (%d linked accounts, %d seen users)\n",
			path, len(snap.LinkedAccounts), len(snap.SeenIdentities))
		return
	}
	for _, p := range problems {
		fmt.Printf("%s: %s\n", path, p)
	}
	os.Exit(1)
}

// verifySnapshot reports the inconsistencies in a snapshot as stored on
// disk. Everything it flags is either repaired or tolerated at load
// time, so findings mean "this file has drifted", not "the bot will
// fail".
func verifySnapshot(snap store.Snapshot) []string {
	var problems []string

	expected := account.DefaultStats().UniqueUsers + len(snap.SeenIdentities)
	if snap.Stats.UniqueUsers != expected {
		problems = append(problems, fmt.Sprintf(
			"stale uniqueUsers counter: stored %d, derived %d", snap.Stats.UniqueUsers, expected))
	}

	seenInOrder := make(map[account.Identity]bool, len(snap.LinkedOrder))
	for _, id := range snap.LinkedOrder {
		if seenInOrder[id] {
			problems = append(problems, fmt.Sprintf("duplicate identity %s in linkedOrder", id))
			continue
		}
		seenInOrder[id] = true
		if _, ok := snap.LinkedAccounts[id]; !ok {
			problems = append(problems, fmt.Sprintf("linkedOrder references %s with no account", id))
		}
	}
	for id := range snap.LinkedAccounts {
		if len(snap.LinkedOrder) > 0 && !seenInOrder[id] {
			problems = append(problems, fmt.Sprintf("account %s missing from linkedOrder", id))
		}
	}

	for id := range snap.PendingUnlinks {
		if _, ok := snap.LinkedAccounts[id]; !ok {
			problems = append(problems, fmt.Sprintf("pending unlink for %s with no account", id))
		}
	}
	for id := range snap.PendingPasswordChanges {
		if _, ok := snap.LinkedAccounts[id]; !ok {
			problems = append(problems, fmt.Sprintf("pending password change for %s with no account", id))
		}
	}

	seenIdentity := make(map[account.Identity]bool, len(snap.SeenIdentities))
	for _, id := range snap.SeenIdentities {
		if seenIdentity[id] {
			problems = append(problems, fmt.Sprintf("duplicate identity %s in uniqueUsers", id))
		}
		seenIdentity[id] = true
	}

	return problems
}
