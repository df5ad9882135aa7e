// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package router dispatches inbound chat messages to account workflow
// handlers and composes the reply for each command.
//
// # Description
//
// The router is transport-agnostic: it receives a Message (identity plus
// text), drives the account.Manager state machine, and sends replies
// through the injected Messenger. Committed workflow steps additionally
// fan out notifications and trigger a snapshot flush. Non-command text
// is ignored so the bot stays silent in group chatter.
package router

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/reallyworld/linkbot/pkg/validation"
	"github.com/reallyworld/linkbot/services/linkbot/account"
	"github.com/reallyworld/linkbot/services/linkbot/notify"
	"github.com/reallyworld/linkbot/services/linkbot/status"
)

// Message is one inbound chat message, already reduced to the fields the
// command handlers need.
type Message struct {
	From       account.Identity
	SenderName string
	Text       string
}

// Flusher persists the current state snapshot on demand.
type Flusher interface {
	FlushNow()
}

// linkRequest carries the parsed /link arguments through validation.
// The mcname rule delegates to the shared credential checks.
type linkRequest struct {
	Username string `validate:"required,mcname"`
	Password string `validate:"required,mcpassword"`
}

// Config collects the router's collaborators and community settings.
type Config struct {
	Manager   *account.Manager
	Tracker   *status.Tracker
	Messenger notify.Messenger
	Fanout    *notify.Fanout
	Flusher   Flusher
	Moderator account.Identity
	ServerIP  string
	News      string
}

// Router routes commands to handlers. Handle is safe for concurrent use;
// state transitions are serialized inside the Manager.
type Router struct {
	manager   *account.Manager
	tracker   *status.Tracker
	messenger notify.Messenger
	fanout    *notify.Fanout
	flusher   Flusher
	moderator account.Identity
	serverIP  string
	news      string
	validate  *validator.Validate
}

func New(cfg Config) (*Router, error) {
	v := validator.New()
	if err := v.RegisterValidation("mcname", func(fl validator.FieldLevel) bool {
		return validation.ValidateUsername(fl.Field().String()) == nil
	}); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("mcpassword", func(fl validator.FieldLevel) bool {
		return validation.ValidatePassword(fl.Field().String()) == nil
	}); err != nil {
		return nil, err
	}
	return &Router{
		manager:   cfg.Manager,
		tracker:   cfg.Tracker,
		messenger: cfg.Messenger,
		fanout:    cfg.Fanout,
		flusher:   cfg.Flusher,
		moderator: cfg.Moderator,
		serverIP:  cfg.ServerIP,
		news:      cfg.News,
		validate:  v,
	}, nil
}

// Handle processes one inbound message end to end: command dispatch,
// state transition, reply, and for committed steps the notification
// fanout plus a snapshot flush. Unknown or non-command text is dropped.
func (r *Router) Handle(ctx context.Context, msg Message) {
	command, args := splitCommand(msg.Text)
	if command == "" {
		return
	}

	switch command {
	case "/start":
		r.handleStart(ctx, msg.From)
	case "/link":
		r.handleLink(ctx, msg.From, args)
	case "/unlink":
		r.handleUnlink(ctx, msg.From)
	case "/confirmunlink":
		r.handleConfirmUnlink(ctx, msg.From)
	case "/changepassword":
		r.handleChangePassword(ctx, msg.From, args)
	case "/confirmpassword":
		r.handleConfirmPassword(ctx, msg.From)
	case "/info":
		r.handleInfo(ctx, msg.From)
	case "/serverinfo":
		r.reply(ctx, msg.From, serverInfoReply(r.tracker.Current(), r.serverIP))
	case "/event":
		r.reply(ctx, msg.From, replyEvent)
	case "/stats":
		r.reply(ctx, msg.From, statsReply(r.manager.Stats()))
	case "/help":
		r.reply(ctx, msg.From, replyHelp)
	case "/support":
		r.reply(ctx, msg.From, replySupport)
	case "/contactmod":
		r.handleContactMod(ctx, msg, args)
	case "/reply":
		r.handleModeratorReply(ctx, msg.From, args)
	case "/accounts":
		r.handleAccounts(ctx, msg.From)
	case "/rules":
		r.reply(ctx, msg.From, replyRules)
	case "/news":
		r.reply(ctx, msg.From, newsReply(r.news))
	case "/donate":
		r.reply(ctx, msg.From, replyDonate)
	default:
		slog.Debug("ignoring unknown command", "command", command, "from", msg.From)
	}
}

// splitCommand lowercases the first word of the text and strips an
// optional @BotName suffix. Returns "" when the text is not a command.
func splitCommand(text string) (command, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", ""
	}
	command, args, _ = strings.Cut(text, " ")
	command = strings.ToLower(command)
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return command, strings.TrimSpace(args)
}

func (r *Router) handleStart(ctx context.Context, from account.Identity) {
	if r.manager.MarkSeen(from) {
		r.flusher.FlushNow()
	}
	r.reply(ctx, from, welcomeReply(from))
}

func (r *Router) handleLink(ctx context.Context, from account.Identity, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		r.reply(ctx, from, replyLinkUsage)
		return
	}
	req := linkRequest{Username: fields[0], Password: fields[1]}
	if err := r.validate.Struct(req); err != nil {
		slog.Debug("rejecting malformed link request", "from", from, "error", err)
		r.reply(ctx, from, replyLinkUsage)
		return
	}

	outcome, ev := r.manager.ProposeLink(from, req.Username, req.Password)
	switch outcome {
	case account.LinkAlreadyLinked:
		r.reply(ctx, from, replyAlreadyLinked)
	case account.LinkAwaitingRepeat:
		r.reply(ctx, from, replyLinkRepeat)
	case account.LinkMismatch:
		r.reply(ctx, from, replyLinkMismatch)
	case account.LinkCommitted:
		r.commit(ctx, *ev, linkedReply(req.Username))
	}
}

func (r *Router) handleUnlink(ctx context.Context, from account.Identity) {
	switch r.manager.RequestUnlink(from) {
	case account.UnlinkNoAccount:
		r.reply(ctx, from, replyNotLinked)
	case account.UnlinkAwaitingConfirm:
		r.reply(ctx, from, replyConfirmUnlink)
	}
}

func (r *Router) handleConfirmUnlink(ctx context.Context, from account.Identity) {
	outcome, ev := r.manager.ConfirmUnlink(from)
	switch outcome {
	case account.UnlinkNoAccount:
		r.reply(ctx, from, replyNotLinked)
	case account.UnlinkNotRequested:
		r.reply(ctx, from, replyUnlinkFirst)
	case account.UnlinkCommitted:
		r.commit(ctx, *ev, replyUnlinked)
	}
}

func (r *Router) handleChangePassword(ctx context.Context, from account.Identity, args string) {
	if args == "" {
		r.reply(ctx, from, replyPasswordUsage)
		return
	}
	if err := validation.ValidatePassword(args); err != nil {
		slog.Debug("rejecting malformed password", "from", from, "error", err)
		r.reply(ctx, from, replyPasswordUsage)
		return
	}
	switch r.manager.ProposePasswordChange(from, args) {
	case account.PasswordNoAccount:
		r.reply(ctx, from, replyNotLinked)
	case account.PasswordEmptyInput:
		r.reply(ctx, from, replyPasswordUsage)
	case account.PasswordAwaitingConfirm:
		r.reply(ctx, from, replyConfirmPassword)
	}
}

func (r *Router) handleConfirmPassword(ctx context.Context, from account.Identity) {
	outcome, ev := r.manager.ConfirmPasswordChange(from)
	switch outcome {
	case account.PasswordNoAccount:
		r.reply(ctx, from, replyNotLinked)
	case account.PasswordNotRequested:
		r.reply(ctx, from, replyPasswordFirst)
	case account.PasswordCommitted:
		r.commit(ctx, *ev, replyPasswordChanged)
	}
}

func (r *Router) handleInfo(ctx context.Context, from account.Identity) {
	acct, ok := r.manager.Account(from)
	if !ok {
		r.reply(ctx, from, replyNotLinked)
		return
	}
	r.reply(ctx, from, infoReply(acct))
}

func (r *Router) handleContactMod(ctx context.Context, msg Message, args string) {
	if args == "" {
		r.reply(ctx, msg.From, replyContactUsage)
		return
	}
	line := notify.ContactLine(msg.From, msg.SenderName, args, time.Now())
	if err := r.fanout.Dispatch(ctx, msg.From, replyContactSent, line); err != nil {
		slog.Warn("contact dispatch incomplete", "from", msg.From, "error", err)
	}
}

// handleModeratorReply forwards a moderator answer to the user a
// /contactmod message came from. The target is addressed by the tg#<id>
// reference embedded in the forwarded message.
func (r *Router) handleModeratorReply(ctx context.Context, from account.Identity, args string) {
	if from != r.moderator {
		r.reply(ctx, from, replyModeratorOnly)
		return
	}
	ref, text, _ := strings.Cut(args, " ")
	target, err := account.ParseIdentity(ref)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		r.reply(ctx, from, replyReplyUsage)
		return
	}
	if err := r.messenger.Send(ctx, target, moderatorReply(text)); err != nil {
		slog.Error("moderator reply delivery failed", "target", target, "error", err)
		r.reply(ctx, from, replyDeliveryFailed(target, err))
		return
	}
	r.reply(ctx, from, replyDelivered(target, text))
}

func (r *Router) handleAccounts(ctx context.Context, from account.Identity) {
	if from != r.moderator {
		r.reply(ctx, from, replyModeratorOnly)
		return
	}
	r.reply(ctx, from, accountsReply(r.manager.Accounts()))
}

// commit runs the post-transition side effects of a committed workflow
// step: notification fanout and a snapshot flush.
func (r *Router) commit(ctx context.Context, ev account.Event, userText string) {
	if err := r.fanout.Dispatch(ctx, ev.Identity, userText, notify.AuditLine(ev)); err != nil {
		slog.Warn("commit dispatch incomplete", "actor", ev.Identity, "error", err)
	}
	r.flusher.FlushNow()
}

func (r *Router) reply(ctx context.Context, to account.Identity, text string) {
	if err := r.messenger.Send(ctx, to, text); err != nil {
		slog.Error("reply delivery failed", "to", to, "error", err)
	}
}
