// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// linkctl inspects a linkbot snapshot file offline: list the linked
// accounts, print the counters, or verify the file's internal
// consistency. It never writes the snapshot.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config is the optional config.yaml next to the binary. Flags override
// it; without either, the bot's defaults apply.
type Config struct {
	Data string `yaml:"data"`
}

var (
	config   Config
	dataPath string

	rootCmd = &cobra.Command{
		Use:   "linkctl",
		Short: "Inspect a linkbot snapshot file",
		Long: `linkctl reads the bot's JSON snapshot offline. Use it to list
linked accounts, print the public counters, or verify the file before a
restore.`,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataPath, "data", "", "path to the snapshot file (default data.json)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if yamlFile, err := os.ReadFile("config.yaml"); err == nil {
			if err := yaml.Unmarshal(yamlFile, &config); err != nil {
				log.Fatalf("Error parsing config.yaml: %v", err)
			}
		}
	}

	rootCmd.AddCommand(accountsCmd, statsCmd, verifyCmd)
}

// snapshotPath resolves the snapshot location: flag, then config.yaml,
// then the bot's default.
func snapshotPath() string {
	if dataPath != "" {
		return dataPath
	}
	if config.Data != "" {
		return config.Data
	}
	return "data.json"
}
