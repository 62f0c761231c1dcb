package bot

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/FeFenix/Pointify/core/logger"
	"github.com/FeFenix/Pointify/core/telegram/callbacks"
	tghelpers "github.com/FeFenix/Pointify/core/telegram/helpers"
	"github.com/FeFenix/Pointify/points"
	"github.com/FeFenix/Pointify/wizard"

	tele "gopkg.in/telebot.v4"
)

// handleWizardStart starts the button wizard for the invoking admin.
// The command route is already gated, and the engine re-checks rights on
// every mutating step anyway.
func (a *App) handleWizardStart(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	triggerID := 0
	if msg := c.Message(); msg != nil {
		triggerID = msg.ID
	}
	return a.engine.Start(ctx, chat.ID, sender.ID, triggerID)
}

// handleWizardTap feeds one decoded button press into the engine. All
// wizard callback keys land here; taps that do not parse are dropped.
func (a *App) handleWizardTap(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	key := callbacks.CallbackKey(c)
	payload := callbacks.CallbackPayload(c)

	tap, err := wizard.ParseTap(key, payload)
	if err != nil {
		logger.Warn(ctx, "tg", "callback.malformed",
			slog.String("cb_key", key),
			slog.String("err", err.Error()),
		)
		return nil
	}
	return a.engine.HandleTap(ctx, chat.ID, sender.ID, tap)
}

func (a *App) handleCancel(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	return a.engine.Cancel(tghelpers.BuildContext(c), chat.ID, sender.ID)
}

func (a *App) handleHelp(c tele.Context) error {
	return tghelpers.SendText(c, textHelp)
}

func (a *App) handleTop(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	entries, err := a.engine.Top(ctx, chat.ID, a.cfg.Points.TopLimit)
	if err != nil {
		if errors.Is(err, points.ErrUnavailable) {
			return tghelpers.SendText(c, textStoreFailure)
		}
		return err
	}
	if len(entries) == 0 {
		return tghelpers.SendText(c, textTopEmpty)
	}
	text, err := topText(entries)
	if err != nil {
		return err
	}
	return tghelpers.SendMDV2(c, text)
}

// handleAllClear zeroes every score in the chat, keeping names so the
// subject picker still works. The engine re-checks rights because the
// textual alias /ac bypasses the gated command route.
func (a *App) handleAllClear(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	err := a.engine.ResetAll(ctx, chat.ID, sender.ID)
	switch {
	case err == nil:
		return tghelpers.SendText(c, textAllCleared)
	case errors.Is(err, wizard.ErrNotAdmin):
		return tghelpers.SendText(c, wizard.TextNotAdmin)
	case errors.Is(err, points.ErrUnavailable):
		return tghelpers.SendText(c, textStoreFailure)
	default:
		return err
	}
}

// handleSighting records the author of any plain group message in the
// ledger so they show up in the subject picker and the leaderboard.
func (a *App) handleSighting(c tele.Context) error {
	chat, sender := c.Chat(), c.Sender()
	if chat == nil || sender == nil || sender.IsBot {
		return nil
	}
	if chat.Type == tele.ChatPrivate {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	return a.engine.Sighting(ctx, chat.ID, sender.ID, principalLabel(sender))
}

// handleAddedToGroup seeds the admin roster from the chat's current
// administrator list when the bot joins.
func (a *App) handleAddedToGroup(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	return a.syncAdmins(c, chat)
}

// handleUserJoined materialises ledger rows for new members without
// crediting anything; the bot's own join triggers an admin sync.
func (a *App) handleUserJoined(c tele.Context) error {
	chat, msg := c.Chat(), c.Message()
	if chat == nil || msg == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	me := c.Bot().(*tele.Bot).Me
	joined := msg.UsersJoined
	if len(joined) == 0 && msg.UserJoined != nil {
		joined = []tele.User{*msg.UserJoined}
	}
	for i := range joined {
		u := &joined[i]
		if me != nil && u.ID == me.ID {
			if err := a.syncAdmins(c, chat); err != nil {
				return err
			}
			continue
		}
		if u.IsBot {
			continue
		}
		if err := a.ledger.UpsertDelta(ctx, chat.ID, u.ID, 0, principalLabel(u)); err != nil {
			logger.Warn(ctx, "service.ledger", "sighting.fail",
				slog.Int64("chat_id", chat.ID),
				slog.Int64("subject_id", u.ID),
				slog.String("err", err.Error()),
			)
		}
	}
	return nil
}

// handleUserLeft tears the chat's data down when the bot itself is
// removed. A regular member leaving keeps their row: scores are history,
// not presence.
func (a *App) handleUserLeft(c tele.Context) error {
	chat, msg := c.Chat(), c.Message()
	if chat == nil || msg == nil || msg.UserLeft == nil {
		return nil
	}
	me := c.Bot().(*tele.Bot).Me
	if me == nil || msg.UserLeft.ID != me.ID {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	if err := a.ledger.DeleteChat(ctx, chat.ID); err != nil {
		return err
	}
	logger.Info(ctx, "service.ledger", "chat.deleted", slog.Int64("chat_id", chat.ID))
	return nil
}

func (a *App) syncAdmins(c tele.Context, chat *tele.Chat) error {
	ctx := tghelpers.BuildContext(c)
	admins, err := c.Bot().AdminsOf(chat)
	if err != nil {
		logger.Warn(ctx, "service.roster", "admin.sync.fail",
			slog.Int64("chat_id", chat.ID),
			slog.String("err", err.Error()),
		)
		return nil
	}
	granted := 0
	for _, member := range admins {
		if member.User == nil || member.User.IsBot {
			continue
		}
		if err := a.roster.Grant(ctx, chat.ID, member.User.ID); err != nil {
			logger.Warn(ctx, "service.roster", "grant.fail",
				slog.Int64("chat_id", chat.ID),
				slog.Int64("user_id", member.User.ID),
				slog.String("err", err.Error()),
			)
			continue
		}
		granted++
	}
	logger.Info(ctx, "service.roster", "admin.sync",
		slog.Int64("chat_id", chat.ID),
		slog.Int("granted", granted),
	)
	return nil
}

// principalLabel picks the label stored as a subject's display name:
// username first, then the profile name, then the bare id.
func principalLabel(u *tele.User) string {
	if u.Username != "" {
		return u.Username
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return strconv.FormatInt(u.ID, 10)
}
