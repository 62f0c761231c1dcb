package wizard

import "context"

// Button is one inline button: Key selects the handler, Payload carries
// the tap data (see ParseTap).
type Button struct {
	Text    string
	Key     string
	Payload string
}

// Messenger is the outbound side of the chat transport. Send returns the
// id of the created message so it can be tracked for cleanup; Delete
// failures are expected (already deleted, too old) and are handled
// best-effort by the caller.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, rows ...[]Button) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string, rows ...[]Button) error
	Delete(ctx context.Context, chatID int64, messageID int) error
}
