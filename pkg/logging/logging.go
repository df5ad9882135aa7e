// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging configures the bot's operational log: human-readable
// text on stderr plus a dated JSON log file. The file is the "operational
// events" artifact — every command handled, every save, every dispatch
// failure ends up there via slog.
//
// Built on log/slog with a fan-out handler; one file per day gives cheap
// date-based rotation without an external rotator.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config controls log destinations. The zero value logs Info+ text to
// stderr only.
type Config struct {
	// Level is the minimum level written anywhere. Defaults to Info.
	Level slog.Level

	// Dir enables file logging when non-empty. The file is named
	// {Service}_{YYYY-MM-DD}.log inside Dir and always JSON-formatted.
	Dir string

	// Service tags every record and names the log file.
	Service string
}

// Setup builds the logger, installs it as the slog default, and returns
// it with a closer for the log file. The closer is a no-op when file
// logging is disabled. File-setup problems degrade to stderr-only
// logging; they never fail startup.
func Setup(cfg Config) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	handlers := []slog.Handler{slog.NewTextHandler(os.Stderr, opts)}
	closer := func() error { return nil }

	if cfg.Dir != "" {
		file, err := openLogFile(cfg.Dir, cfg.Service)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file disabled: %v\n", err)
		} else {
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
			closer = func() error {
				if err := file.Sync(); err != nil {
					file.Close()
					return err
				}
				return file.Close()
			}
		}
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = &fanoutHandler{handlers: handlers}
	}
	if cfg.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer
}

// openLogFile creates the log directory and opens today's file in append
// mode.
func openLogFile(dir, service string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	if service == "" {
		service = "linkbot"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// fanoutHandler sends each record to every destination handler, allowing
// different formats per destination (text on stderr, JSON in the file).
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// Discard returns a logger that drops everything. Handy in tests that
// exercise code logging via an injected logger.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
