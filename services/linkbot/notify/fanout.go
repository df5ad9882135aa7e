// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/reallyworld/linkbot/services/linkbot/account"
)

var fanoutDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "linkbot_fanout_dispatches_total",
	Help: "Fanout dispatch attempts by channel and outcome",
}, []string{"channel", "status"})

// Messenger sends a text message to a messaging identity. The Telegram
// transport implements it; tests inject fakes.
type Messenger interface {
	Send(ctx context.Context, to account.Identity, text string) error
}

// Appender is the audit-file dependency of the fanout. *AuditFile
// satisfies it.
type Appender interface {
	Append(line string) error
}

// AuditLine composes the audit text for a committed mutation. The same
// line goes to the moderator channel and the audit file, credential
// included — fidelity to the source workflow, flagged rather than
// hardened (see package account).
func AuditLine(ev account.Event) string {
	ts := ev.Time.UTC().Format(time.RFC3339)
	switch ev.Kind {
	case account.EventLink:
		return fmt.Sprintf("[%s] User %s linked account: %s with password: %s",
			ts, ev.Identity, ev.Username, ev.Password)
	case account.EventUnlink:
		return fmt.Sprintf("[%s] User %s unlinked account: %s", ts, ev.Identity, ev.Username)
	case account.EventPasswordChange:
		return fmt.Sprintf("[%s] User %s changed password for %s to: %s",
			ts, ev.Identity, ev.Username, ev.Password)
	default:
		return fmt.Sprintf("[%s] User %s: unknown event", ts, ev.Identity)
	}
}

// ContactLine composes the audit text for a /contactmod message.
func ContactLine(from account.Identity, senderName, text string, at time.Time) string {
	if senderName == "" {
		senderName = "Unknown"
	}
	return fmt.Sprintf("[%s] Message from %s (%s): %s",
		at.UTC().Format(time.RFC3339), from, senderName, text)
}

// Fanout dispatches a committed mutation or moderator-contact message to
// its three destinations.
//
// # Description
//
// Dispatch attempts all three deliveries independently: the acting
// identity's confirmation, the moderator-channel copy of the audit line,
// and the audit-file append. A failure in any leg is counted, logged
// under a per-dispatch event ID, and not retried; the other legs proceed
// regardless. Dispatch blocks until all legs finish, so callers that must
// not wait run it in a goroutine.
type Fanout struct {
	messenger Messenger
	audit     Appender
	moderator account.Identity
}

// NewFanout wires a Fanout to its destinations.
func NewFanout(messenger Messenger, audit Appender, moderator account.Identity) *Fanout {
	return &Fanout{messenger: messenger, audit: audit, moderator: moderator}
}

// Dispatch delivers auditLine to the moderator channel and audit file,
// and userText to the acting identity. All three legs are attempted even
// when some fail; the first error is returned for callers that care.
func (f *Fanout) Dispatch(ctx context.Context, actor account.Identity, userText, auditLine string) error {
	eventID := uuid.NewString()
	log := slog.With("event_id", eventID, "actor", actor.String())

	var g errgroup.Group
	g.Go(func() error {
		return f.attempt(log, "user", func() error {
			return f.messenger.Send(ctx, actor, userText)
		})
	})
	g.Go(func() error {
		return f.attempt(log, "moderator", func() error {
			return f.messenger.Send(ctx, f.moderator, auditLine)
		})
	})
	g.Go(func() error {
		return f.attempt(log, "audit_file", func() error {
			return f.audit.Append(auditLine)
		})
	})
	return g.Wait()
}

// attempt runs one delivery leg, recording metrics and logging failures.
func (f *Fanout) attempt(log *slog.Logger, channel string, send func() error) error {
	if err := send(); err != nil {
		fanoutDispatches.WithLabelValues(channel, "error").Inc()
		log.Error("Fanout dispatch failed", "channel", channel, "error", err)
		return fmt.Errorf("%s dispatch: %w", channel, err)
	}
	fanoutDispatches.WithLabelValues(channel, "success").Inc()
	return nil
}
