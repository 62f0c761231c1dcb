package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/FeFenix/Pointify/core/telegram/keyboard"
	"github.com/FeFenix/Pointify/wizard"

	tele "gopkg.in/telebot.v4"
)

// TeleMessenger adapts a running telebot instance to the wizard's
// messenger interface. Wizard messages are sent synchronously because the
// engine needs the created message ids to track them for cleanup; plain
// command replies keep going through the async dispatcher.
//
// The bot pointer is bound lazily from the first handled update, since the
// bot instance only exists once the Telegram runtime is up.
type TeleMessenger struct {
	bot atomic.Pointer[tele.Bot]
}

// NewTeleMessenger returns an unbound messenger.
func NewTeleMessenger() *TeleMessenger {
	return &TeleMessenger{}
}

// Bind attaches the live bot instance. Safe to call on every update.
func (m *TeleMessenger) Bind(b *tele.Bot) {
	if b != nil {
		m.bot.Store(b)
	}
}

// Bot returns the bound instance, nil before the first update.
func (m *TeleMessenger) Bot() *tele.Bot {
	return m.bot.Load()
}

func (m *TeleMessenger) current() (*tele.Bot, error) {
	b := m.bot.Load()
	if b == nil {
		return nil, fmt.Errorf("messenger: bot not bound yet")
	}
	return b, nil
}

// Send delivers a message and returns its id.
func (m *TeleMessenger) Send(_ context.Context, chatID int64, text string, rows ...[]wizard.Button) (int, error) {
	b, err := m.current()
	if err != nil {
		return 0, err
	}
	msg, err := b.Send(tele.ChatID(chatID), text, sendOptions(rows))
	if err != nil {
		return 0, fmt.Errorf("messenger: send: %w", err)
	}
	return msg.ID, nil
}

// Edit replaces the text and keyboard of an existing message.
func (m *TeleMessenger) Edit(_ context.Context, chatID int64, messageID int, text string, rows ...[]wizard.Button) error {
	b, err := m.current()
	if err != nil {
		return err
	}
	if _, err := b.Edit(storedMessage(chatID, messageID), text, sendOptions(rows)); err != nil {
		return fmt.Errorf("messenger: edit: %w", err)
	}
	return nil
}

// Delete removes a message.
func (m *TeleMessenger) Delete(_ context.Context, chatID int64, messageID int) error {
	b, err := m.current()
	if err != nil {
		return err
	}
	if err := b.Delete(storedMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("messenger: delete: %w", err)
	}
	return nil
}

func storedMessage(chatID int64, messageID int) tele.StoredMessage {
	return tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
}

func sendOptions(rows [][]wizard.Button) *tele.SendOptions {
	return &tele.SendOptions{ReplyMarkup: inlineMarkup(rows)}
}

func inlineMarkup(rows [][]wizard.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	conv := make([][]keyboard.InlineBtn, len(rows))
	for i, row := range rows {
		r := make([]keyboard.InlineBtn, len(row))
		for j, btn := range row {
			r[j] = keyboard.InlineBtn{Text: btn.Text, Unique: btn.Key, Data: btn.Payload}
		}
		conv[i] = r
	}
	return keyboard.InlineButtonsRows(conv...)
}
