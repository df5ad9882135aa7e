// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package web is the bot's keep-alive HTTP surface: a liveness page for
// hosting-platform pings plus health and metrics endpoints.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reallyworld/linkbot/services/linkbot/status"
)

// Handlers serves the keep-alive endpoints.
type Handlers struct {
	tracker *status.Tracker
	started time.Time
}

func NewHandlers(tracker *status.Tracker) *Handlers {
	return &Handlers{tracker: tracker, started: time.Now()}
}

// NewRouter builds the HTTP router with recovery and request logging
// applied.
//
// Description:
//
//	Registers the keep-alive endpoints:
//
//	GET / - Liveness page for uptime monitors
//	GET /ping - Plain-text ping
//	GET /health - JSON health report with uptime and server status
//	GET /metrics - Prometheus metrics
func NewRouter(handlers *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/", handlers.HandleRoot)
	router.GET("/ping", handlers.HandlePing)
	router.GET("/health", handlers.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

func (h *Handlers) HandleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Bot is running!")
}

func (h *Handlers) HandlePing(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// HandleHealth reports process uptime and the last known game-server
// status. It always returns 200: the bot being up is the health signal,
// the game server being down is payload.
func (h *Handlers) HandleHealth(c *gin.Context) {
	st := h.tracker.Current()
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"server":         st,
	})
}

// requestLogger logs each request through the process-wide slog setup.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
