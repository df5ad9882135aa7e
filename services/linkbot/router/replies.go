// Copyright (C) 2025 ReallyWorld (dev@reallyworld.ru)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package router

import (
	"fmt"
	"strings"

	"github.com/reallyworld/linkbot/services/linkbot/account"
	"github.com/reallyworld/linkbot/services/linkbot/status"
)

// Community links rendered in static replies.
const (
	supportURL = "https://discord.com/invite/reallyworld"
	rulesURL   = "https://reallyworld.ru/rules"
	donateURL  = "https://reallyworld.ru/donate"
	newsURL    = "https://t.me/rwinfo"
)

// Fixed user-facing reply lines.
const (
	replyLinkUsage       = "To link an account, type: /link <game username> <account password>"
	replyAlreadyLinked   = "Account already linked. Use /info or /unlink 🚫"
	replyLinkRepeat      = "Repeat: /link <username> <password> ⏳"
	replyLinkMismatch    = "The data does not match. Repeat: /link <username> <password> ❌"
	replyNotLinked       = "No account is linked 🚫"
	replyConfirmUnlink   = "Confirm: /confirmunlink ❓"
	replyUnlinkFirst     = "Type /unlink first ⚠️"
	replyUnlinked        = "Account unlinked! ✅"
	replyPasswordUsage   = "To change the password, type: /changepassword <password> ⏳"
	replyConfirmPassword = "Confirm: /confirmpassword ❓"
	replyPasswordFirst   = "Type /changepassword first ⚠️"
	replyPasswordChanged = "Password changed! ✅"
	replyEvent           = "No events right now. See /news ℹ️"
	replyHelp            = "To link an account, type: /link <username> <password>\nAll commands: /start ℹ️"
	replySupport         = "Support: " + supportURL + " ℹ️"
	replyContactUsage    = "To message the moderators, type: /contactmod <message> ✍️"
	replyContactSent     = "Message sent! ✅"
	replyModeratorOnly   = "This command is for moderators only! 🚫"
	replyReplyUsage      = "To reply, type: /reply tg#<ID> <message>"
	replyNoAccounts      = "No linked accounts."
	replyRules           = "Rules: " + rulesURL + " ℹ️"
	replyDonate          = "Donations: " + donateURL + " ℹ️"
)

// welcomeReply is the /start message: greeting, command list, and the
// user's identity reference for /contactmod correspondence.
func welcomeReply(id account.Identity) string {
	return fmt.Sprintf(`Hi! 👋 I'm the ReallyWorld | Link bot. I can link your game account and tell you about the server.

📃 Bot commands:
▫ /link - Link your game account
▫ /unlink - Unlink your game account
▫ /changepassword - Change the linked account's password
▫ /info - Show your linked account
▫ /serverinfo - Server information
▫ /event - Upcoming event information
▫ /stats - Bot statistics
▫ /help - Help with account linking
▫ /support - Contact support
▫ /contactmod - Message the moderators
▫ /rules - Server rules
▫ /news - Latest server news
▫ /donate - Donation information

📃 Your UserID: %s`, id)
}

func linkedReply(username string) string {
	return fmt.Sprintf("Account %s linked! ✅\n"+
		"If you entered the wrong ReallyWorld credentials, the account is only linked in the bot; nothing is linked in the game.", username)
}

func infoReply(acct account.LinkedAccount) string {
	return fmt.Sprintf("Username: %s\nPassword: %s\nBot-only data ℹ️", acct.Username, acct.Password)
}

func serverInfoReply(st status.Status, serverIP string) string {
	head := "Offline 🔴"
	if st.Online {
		head = fmt.Sprintf("Online 🟢\nPlayers: %d/%d", st.Players, st.MaxPlayers)
	}
	return fmt.Sprintf("%s\nIP: %s\nVersion: %s\nWipe date: March 1 ℹ️", head, serverIP, status.GameVersion)
}

func statsReply(st account.Stats) string {
	return fmt.Sprintf("Users: %d\nLinks: %d\nUnlinks: %d ℹ️",
		st.UniqueUsers, st.LinkedAccounts, st.UnlinkedAccounts)
}

func newsReply(news string) string {
	return fmt.Sprintf("%s\nChannel: %s ℹ️", news, newsURL)
}

// accountsReply renders the moderator ledger listing. The empty ledger
// gets its own message, never an empty list.
func accountsReply(entries []account.Entry) string {
	if len(entries) == 0 {
		return replyNoAccounts
	}
	var b strings.Builder
	b.WriteString("Linked accounts:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %s | %s\n", e.Identity, e.Account.Username, e.Account.Password)
	}
	return b.String()
}

func moderatorReply(text string) string {
	return fmt.Sprintf("Reply from moderator: %s", text)
}

func replyDelivered(target account.Identity, text string) string {
	return fmt.Sprintf("Reply delivered to user %s: %s ✅", target, text)
}

func replyDeliveryFailed(target account.Identity, err error) string {
	return fmt.Sprintf("Failed to deliver reply to user %s: %v ❌", target, err)
}
