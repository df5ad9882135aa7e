// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/reallyworld/linkbot/services/linkbot/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the snapshot's public counters",
	Run:   runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	snap, err := store.ReadSnapshot(snapshotPath())
	if err != nil {
		log.Fatalf("Error reading snapshot: %v", err)
	}

	fmt.Printf("Unique users:     %d\n", snap.Stats.UniqueUsers)
	fmt.Printf("Links counter:    %d\n", snap.Stats.LinkedAccounts)
	fmt.Printf("Unlinks counter:  %d\n", snap.Stats.UnlinkedAccounts)
	fmt.Printf("Linked accounts:  %d\n", len(snap.LinkedAccounts))
	fmt.Printf("Pending links:    %d\n", len(snap.PendingLinks))
	fmt.Printf("Pending unlinks:  %d\n", len(snap.PendingUnlinks))
	fmt.Printf("Pending passwords: %d\n", len(snap.PendingPasswordChanges))
	fmt.Printf("Server news:      %s\n", snap.ServerNews)
}
