package middleware

import (
	tele "gopkg.in/telebot.v4"
)

// countingContext wraps tele.Context so every outgoing reply bumps the
// per-update message counter. The router logger reads the counters to
// report how many messages a handler produced and whether any carried
// an inline keyboard.
type countingContext struct{ tele.Context }

func (m countingContext) recorded(err error, opts []interface{}) error {
	if err != nil {
		return err
	}
	n, _ := m.Get("messages").(int)
	m.Set("messages", n+1)
	if hasKeyboard(opts) {
		m.Set("kb", true)
	}
	return nil
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m countingContext) Send(what interface{}, opts ...interface{}) error {
	return m.recorded(m.Context.Send(what, opts...), opts)
}

func (m countingContext) Reply(what interface{}, opts ...interface{}) error {
	return m.recorded(m.Context.Reply(what, opts...), opts)
}

// Edits count as responses too.
func (m countingContext) Edit(what interface{}, opts ...interface{}) error {
	return m.recorded(m.Context.Edit(what, opts...), opts)
}

func (m countingContext) EditOrSend(what interface{}, opts ...interface{}) error {
	return m.recorded(m.Context.EditOrSend(what, opts...), opts)
}

func (m countingContext) EditOrReply(what interface{}, opts ...interface{}) error {
	return m.recorded(m.Context.EditOrReply(what, opts...), opts)
}

// MessageMetricsMiddleware seeds the counters and swaps in the
// counting context for the rest of the chain.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set("messages", 0)
		c.Set("kb", false)
		return next(countingContext{Context: c})
	}
}

// GetCounters reads the message count and keyboard flag back out.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get("messages").(int)
	kb, _ := c.Get("kb").(bool)
	return msgs, kb
}
