package middleware

import (
	"log/slog"

	"github.com/FeFenix/Pointify/core/logger"
	tghelpers "github.com/FeFenix/Pointify/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOptions defines how chat-admin checks behave.
type AdminOptions struct {
	// IsAdmin reports whether the principal administers the given chat.
	IsAdmin func(chatID, userID int64) (bool, error)
	// OverrideID optionally names a single global administrator that
	// bypasses the per-chat check.
	OverrideID int64
	OnReject   tele.HandlerFunc
}

// ChatAdminMiddleware ensures that only chat administrators (or the global
// override) can invoke downstream handlers. Check failures are treated as
// a rejection, never as a pass.
func ChatAdminMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()
			if sender == nil || chat == nil {
				return nil
			}
			if opts.OverrideID != 0 && sender.ID == opts.OverrideID {
				return next(c)
			}
			if opts.IsAdmin != nil {
				ok, err := opts.IsAdmin(chat.ID, sender.ID)
				if err != nil {
					ctx := tghelpers.BuildContext(c)
					logger.Warn(ctx, "tg", "admin.check.fail",
						slog.Int64("chat_id", chat.ID),
						slog.Int64("user_id", sender.ID),
						slog.String("err", err.Error()),
					)
				} else if ok {
					return next(c)
				}
			}
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
