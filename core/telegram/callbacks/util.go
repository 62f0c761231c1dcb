package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// splitData parses telebot's wire encoding \f<unique>|<payload> into its
// two parts. The payload part may be absent.
func splitData(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	raw := strings.TrimPrefix(cb.Data, "\\f")
	unique, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique key of the tapped button. It prefers
// cb.Unique and falls back to parsing Data, which is where the key lives
// for updates delivered through the generic OnCallback endpoint.
func CallbackKey(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique
	}
	key, _ := splitData(cb)
	return key
}

// CallbackPayload returns the data portion after '|', if any.
func CallbackPayload(c tele.Context) string {
	_, payload := splitData(c.Callback())
	return payload
}
