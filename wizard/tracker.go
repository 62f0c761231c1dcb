package wizard

import (
	"context"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/FeFenix/Pointify/core/logger"
)

// tracker keeps the ids of bot messages produced during a session so the
// scratch UI can be bulk-deleted when the session ends. Append-only while
// the session lives; owned exclusively by its session.
type tracker struct {
	ids []int
}

// Record appends a message id.
func (t *tracker) Record(messageID int) {
	if messageID == 0 {
		return
	}
	t.ids = append(t.ids, messageID)
}

// Drop removes one id, used when a message is re-tracked after an edit
// fallback replaced it.
func (t *tracker) Drop(messageID int) {
	for i, id := range t.ids {
		if id == messageID {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			return
		}
	}
}

// Flush asks the messenger to delete every recorded id except those in
// keep. Individual failures (message already gone, too old to delete) are
// collected and logged once; the batch always runs to the end and Flush
// never fails. The list is cleared unconditionally.
func (t *tracker) Flush(ctx context.Context, m Messenger, chatID int64, keep ...int) {
	var errs *multierror.Error
	deleted := 0
	for _, id := range t.ids {
		if contains(keep, id) {
			continue
		}
		if err := m.Delete(ctx, chatID, id); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		deleted++
	}
	if err := errs.ErrorOrNil(); err != nil {
		logger.Warn(ctx, "service.wizard", "cleanup.partial",
			slog.Int64("chat_id", chatID),
			slog.Int("count", deleted),
			slog.Int("attempts", len(t.ids)),
			slog.String("err", err.Error()),
		)
	} else if deleted > 0 {
		logger.Debug(ctx, "service.wizard", "cleanup.done",
			slog.Int64("chat_id", chatID),
			slog.Int("count", deleted),
		)
	}
	remaining := t.ids[:0]
	for _, id := range t.ids {
		if contains(keep, id) {
			remaining = append(remaining, id)
		}
	}
	t.ids = remaining
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
