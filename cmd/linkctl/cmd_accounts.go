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

	"github.com/reallyworld/linkbot/services/linkbot/account"
	"github.com/reallyworld/linkbot/services/linkbot/store"
)

var redactPasswords bool

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List the linked accounts in the snapshot",
	Run:   runAccounts,
}

func init() {
	accountsCmd.Flags().BoolVar(&redactPasswords, "redact", false, "hide passwords in the listing")
}

func runAccounts(cmd *cobra.Command, args []string) {
	snap, err := store.ReadSnapshot(snapshotPath())
	if err != nil {
		log.Fatalf("Error reading snapshot: %v", err)
	}

	manager := account.NewManagerFromState(snap.State)
	entries := manager.Accounts()
	if len(entries) == 0 {
		fmt.Println("No linked accounts.")
		return
	}
	for _, e := range entries {
		password := e.Account.Password
		if redactPasswords {
			password = "********"
		}
		fmt.Printf("%s: %s | %s\n", e.Identity, e.Account.Username, password)
	}
	fmt.Printf("\n%d linked account(s)\n", len(entries))
}
