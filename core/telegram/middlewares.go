package telegram

import (
	"github.com/FeFenix/Pointify/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain for the bot:
// panic recovery first, then update logging and outbound message metrics.
func DefaultMiddlewares() []Middleware {
	return []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	}
}
