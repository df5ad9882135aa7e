// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reallyworld/linkbot/pkg/logging"
	"github.com/reallyworld/linkbot/services/linkbot/account"
	"github.com/reallyworld/linkbot/services/linkbot/notify"
	"github.com/reallyworld/linkbot/services/linkbot/router"
	"github.com/reallyworld/linkbot/services/linkbot/status"
	"github.com/reallyworld/linkbot/services/linkbot/store"
	"github.com/reallyworld/linkbot/services/linkbot/telegram"
	"github.com/reallyworld/linkbot/services/linkbot/web"
)

const (
	defaultModerator  = account.Identity(7563680941)
	defaultServerHost = "mc.reallyworld.ru"
	pollInterval      = 5 * time.Minute
)

func main() {
	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}
	port := envOr("PORT", "8080")
	dataPath := envOr("LINKBOT_DATA", "data.json")
	auditPath := envOr("LINKBOT_AUDIT", "account.txt")
	logDir := envOr("LINKBOT_LOG_DIR", "logs")
	serverHost := envOr("LINKBOT_SERVER", defaultServerHost)
	moderator := envIdentityOr("LINKBOT_MODERATOR", defaultModerator)
	debug := os.Getenv("LINKBOT_DEBUG") != ""

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger, closeLogs := logging.Setup(logging.Config{Level: level, Dir: logDir, Service: "linkbot"})
	defer func() {
		if err := closeLogs(); err != nil {
			log.Printf("closing log file: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// State: load the snapshot, rebuild the manager, seed the trackers.
	// The store's snapshot closure reads them back on every save.
	var (
		manager *account.Manager
		tracker *status.Tracker
		news    string
	)
	st := store.New(dataPath, func() store.Snapshot {
		return store.Snapshot{
			State:        manager.ExportState(),
			ServerNews:   news,
			ServerStatus: tracker.Current(),
		}
	})
	snap := st.Load()
	manager = account.NewManagerFromState(snap.State)
	tracker = status.NewTracker(snap.ServerStatus)
	news = snap.ServerNews
	logger.Info("State loaded",
		"path", dataPath,
		"linked_accounts", len(snap.LinkedAccounts),
		"unique_users", snap.Stats.UniqueUsers,
	)

	audit, err := notify.OpenAuditFile(auditPath)
	if err != nil {
		log.Fatalf("opening audit file: %v", err)
	}
	defer audit.Close()

	bot, err := telegram.New(token)
	if err != nil {
		log.Fatalf("starting Telegram client: %v", err)
	}

	flusher := store.NewFlusher(st, store.DefaultFlushInterval)
	if err := flusher.Start(ctx); err != nil {
		log.Fatalf("starting snapshot flusher: %v", err)
	}

	rt, err := router.New(router.Config{
		Manager:   manager,
		Tracker:   tracker,
		Messenger: bot,
		Fanout:    notify.NewFanout(bot, audit, moderator),
		Flusher:   flusher,
		Moderator: moderator,
		ServerIP:  serverHost,
		News:      news,
	})
	if err != nil {
		log.Fatalf("building router: %v", err)
	}

	poller := status.NewPoller(tracker, nil, serverHost, pollInterval)
	if err := poller.Refresh(ctx); err != nil {
		logger.Warn("Initial status fetch failed", "error", err)
	}
	if err := poller.Start(ctx); err != nil {
		log.Fatalf("starting status poller: %v", err)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: web.NewRouter(web.NewHandlers(tracker)),
	}
	go func() {
		logger.Info("Keep-alive server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("keep-alive server: %v", err)
		}
	}()

	logger.Info("Bot started", "server", serverHost, "moderator", moderator)
	bot.Listen(ctx, rt.Handle)

	// Shutdown: stop background loops, flush state one last time, close
	// the HTTP surface.
	poller.Stop()
	flusher.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Keep-alive server shutdown failed", "error", err)
	}
	logger.Info("Bot stopped")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIdentityOr(key string, fallback account.Identity) account.Identity {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return account.Identity(id)
}
