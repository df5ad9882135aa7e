// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package telegram is the bot's chat transport: it long-polls the
// Telegram Bot API for updates, hands each text message to the command
// router, and delivers outbound messages for the notification fanout.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/reallyworld/linkbot/services/linkbot/account"
	"github.com/reallyworld/linkbot/services/linkbot/router"
)

const updateTimeoutSeconds = 30

// botAPI is the slice of the Bot API client the transport uses. Tests
// inject fakes.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler consumes one routed inbound message.
type Handler func(ctx context.Context, msg router.Message)

// Client adapts the Telegram Bot API to the bot's Messenger and inbound
// message loop.
type Client struct {
	api botAPI
}

// New authenticates against the Bot API with the given token.
func New(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram authentication: %w", err)
	}
	slog.Info("Telegram bot authorized", "username", api.Self.UserName)
	return &Client{api: api}, nil
}

// Send delivers text to the private chat of a messaging identity. It
// satisfies notify.Messenger.
func (c *Client) Send(ctx context.Context, to account.Identity, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(int64(to), text)); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}

// Listen long-polls for updates and dispatches each text message to the
// handler until ctx is cancelled. Every message is handled in its own
// goroutine so a slow outbound delivery never stalls the poll loop;
// state consistency is the manager's concern, not the transport's.
func (c *Client) Listen(ctx context.Context, handle Handler) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeoutSeconds
	updates := c.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg, ok := inbound(update)
			if !ok {
				continue
			}
			go handle(ctx, msg)
		}
	}
}

// inbound reduces a raw update to the router's message shape. Updates
// without a text message (edits, joins, stickers) are dropped.
func inbound(update tgbotapi.Update) (router.Message, bool) {
	if update.Message == nil || update.Message.Text == "" {
		return router.Message{}, false
	}
	return router.Message{
		From:       account.Identity(update.Message.Chat.ID),
		SenderName: senderName(update.Message.From),
		Text:       update.Message.Text,
	}, true
}

func senderName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return user.UserName
	}
	return user.FirstName
}
