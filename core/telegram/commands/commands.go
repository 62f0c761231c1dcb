package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command describes a slash command registered with the bot. AdminOnly
// commands are wrapped with the admin gate at registration time; Hidden
// commands are excluded from the published command list.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Aliases     []string
	AdminOnly   bool
	Hidden      bool
}
