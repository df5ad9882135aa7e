// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultFlushInterval matches the original deployment's save timer.
const DefaultFlushInterval = 5 * time.Minute

// Flusher runs the periodic snapshot save in the background.
//
// # Description
//
// Uses the ticker + done-channel pattern for graceful shutdown. Each tick
// calls Store.Save; failures are logged and the next tick tries again —
// there is no retry inside a cycle. FlushNow serves the commit path
// (fire-and-forget via goroutine) and the final synchronous save on
// shutdown.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Flusher struct {
	store    *Store
	interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	running bool
}

// NewFlusher creates a Flusher. A non-positive interval falls back to
// DefaultFlushInterval.
func NewFlusher(store *Store, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Flusher{store: store, interval: interval, done: make(chan struct{})}
}

// Start launches the periodic save loop. Returns an error if the flusher
// is already running.
func (f *Flusher) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return fmt.Errorf("flusher is already running")
	}
	f.running = true
	f.done = make(chan struct{})
	f.mu.Unlock()

	slog.Info("Snapshot flusher starting", "interval", f.interval.String(), "path", f.store.Path())

	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.FlushNow()
			case <-ctx.Done():
				return
			case <-f.done:
				return
			}
		}
	}()
	return nil
}

// FlushNow performs one synchronous save, logging the outcome. Used by
// the periodic loop, by commit-triggered flushes, and by shutdown.
func (f *Flusher) FlushNow() {
	if err := f.store.Save(); err != nil {
		slog.Error("Snapshot save failed", "error", err)
		return
	}
	slog.Info("Snapshot saved", "path", f.store.Path())
}

// Stop terminates the periodic loop and performs a final synchronous
// save. In-flight mutations are not waited for; the final save is
// best-effort, matching the original's SIGTERM handling.
func (f *Flusher) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	close(f.done)
	f.mu.Unlock()

	f.FlushNow()
}
