// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package status

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const userAgent = "ReallyWorldBot/1.0"

// HTTPClient allows injecting a mock HTTP client for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// mcStatusResponse is the subset of the mcstatus.io v2 payload we read.
type mcStatusResponse struct {
	Online  bool `json:"online"`
	Players struct {
		Online int `json:"online"`
		Max    int `json:"max"`
	} `json:"players"`
}

// Poller periodically refreshes a Tracker from the public status API.
//
// # Description
//
// Runs a ticker + done-channel loop. Each cycle fetches
// https://api.mcstatus.io/v2/status/java/<host> and replaces the tracked
// status. A failed fetch is logged and the previous status retained;
// the poller never propagates fetch errors to its owner.
//
// # Thread Safety
//
// Start and Stop are safe for concurrent use, guarded by a mutex.
type Poller struct {
	tracker  *Tracker
	client   HTTPClient
	host     string
	interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	running bool
}

// NewPoller creates a poller for the given server host. A nil client
// falls back to a default http.Client with a 30-second timeout.
func NewPoller(tracker *Tracker, client HTTPClient, host string, interval time.Duration) *Poller {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Poller{
		tracker:  tracker,
		client:   client,
		host:     host,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Refresh performs one status fetch and updates the tracker. Exposed so
// startup can prime the status without waiting a full interval.
func (p *Poller) Refresh(ctx context.Context) error {
	url := fmt.Sprintf("https://api.mcstatus.io/v2/status/java/%s", p.host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call status API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status API returned %s", resp.Status)
	}

	var payload mcStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode status JSON: %w", err)
	}

	if !payload.Online {
		p.tracker.Set(Status{Online: false})
		return nil
	}
	p.tracker.Set(Status{
		Online:     true,
		Players:    payload.Players.Online,
		MaxPlayers: payload.Players.Max,
		Version:    GameVersion,
	})
	return nil
}

// Start launches the background refresh loop. Returns an error if the
// poller is already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("status poller is already running")
	}
	p.running = true
	p.done = make(chan struct{})
	p.mu.Unlock()

	slog.Info("Server status poller starting", "host", p.host, "interval", p.interval.String())

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := p.Refresh(ctx); err != nil {
					slog.Error("Server status refresh failed, keeping previous status", "error", err)
				} else {
					slog.Info("Server status updated")
				}
			case <-ctx.Done():
				return
			case <-p.done:
				return
			}
		}
	}()
	return nil
}

// Stop terminates the refresh loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	close(p.done)
}
