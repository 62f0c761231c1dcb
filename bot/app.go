// Package bot assembles the points bot: configuration, storage, the admin
// wizard and the Telegram wiring.
package bot

import (
	"context"
	"fmt"

	"github.com/FeFenix/Pointify/core/bootstrap"
	coreconfig "github.com/FeFenix/Pointify/core/config"
	tg "github.com/FeFenix/Pointify/core/telegram"
	"github.com/FeFenix/Pointify/core/telegram/commands"
	tghelpers "github.com/FeFenix/Pointify/core/telegram/helpers"
	"github.com/FeFenix/Pointify/core/telegram/middleware"
	"github.com/FeFenix/Pointify/core/telegram/router"
	"github.com/FeFenix/Pointify/points"
	"github.com/FeFenix/Pointify/wizard"

	tele "gopkg.in/telebot.v4"
)

// App wires the ledger, the admin roster and the wizard engine behind the
// Telegram transport.
type App struct {
	cfg       *coreconfig.Config
	ledger    points.Ledger
	roster    points.Roster
	engine    *wizard.Engine
	messenger *TeleMessenger

	close func() error
}

// New runs the bootstrap pipeline (logger, database, migrations) and
// assembles the application on top of it.
func New(cfg *coreconfig.Config) (*App, error) {
	boot, err := bootstrap.Run(bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}

	store := points.NewPostgresStore(boot.DB)
	msgr := NewTeleMessenger()

	app := &App{
		cfg:       cfg,
		ledger:    store,
		roster:    store,
		messenger: msgr,
		close:     boot.DB.Close,
	}
	app.engine = wizard.New(store, store, msgr, wizard.Config{
		MaxAmount:       cfg.Points.MaxAmount,
		SightingCredit:  cfg.Points.SightingCredit,
		OverrideAdminID: cfg.Telegram.AdminID,
	})
	return app, nil
}

// Close releases the application's resources.
func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// CoreConfig returns the loaded configuration.
func (a *App) CoreConfig() *coreconfig.Config { return a.cfg }

// TelegramRunOptions builds the full bot wiring: commands, wizard
// callbacks, the passive text fallback and membership hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a.cfg == nil {
		return tg.RunOptions{}, fmt.Errorf("bot: nil config")
	}

	reg := a.buildRegistry()

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		Admin: a.adminOptions(),
	})
	routes = append(routes,
		router.CallbackRoute(reg, router.CallbackOptions{}),
		router.TextRoute(reg, router.TextOptions{}),
	)
	routes = append(routes, a.memberRoutes()...)

	// The messenger needs the live bot instance, which only exists inside
	// the Telegram runtime; bind it from the first update onward.
	middlewares := append([]tg.Middleware{{
		Name: "bind",
		Use: func(next tele.HandlerFunc) tele.HandlerFunc {
			return func(c tele.Context) error {
				a.messenger.Bind(c.Bot().(*tele.Bot))
				return next(c)
			}
		},
	}}, tg.DefaultMiddlewares()...)

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Middlewares: middlewares,
		Routes:      routes,
	}, nil
}

func (a *App) buildRegistry() *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/a", commands.Command{
		Handler:     a.handleWizardStart,
		Description: "Відкрити меню балів",
		AdminOnly:   true,
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "Довідка по командах",
	})
	reg.RegisterCommand("/top", commands.Command{
		Handler:     a.handleTop,
		Description: "Рейтинг чату",
	})
	reg.RegisterCommand("/allclear", commands.Command{
		Handler:     a.handleAllClear,
		Description: "Скинути всі бали в чаті",
		AdminOnly:   true,
		Aliases:     []string{"ac"},
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Скасувати поточну сесію",
		Hidden:      true,
	})

	for _, key := range []string{
		wizard.KeyAction,
		wizard.KeySubject,
		wizard.KeyAmount,
		wizard.KeyFinish,
		wizard.KeyWipe,
	} {
		_ = reg.RegisterCallback(key, a.handleWizardTap)
	}

	// Every plain group message feeds the ledger so the subject picker
	// knows who is around.
	reg.SetTextFallback(a.handleSighting)

	return reg
}

func (a *App) adminOptions() middleware.AdminOptions {
	return middleware.AdminOptions{
		IsAdmin:    a.adminProbe,
		OverrideID: a.cfg.Telegram.AdminID,
		OnReject: func(c tele.Context) error {
			return tghelpers.SendText(c, wizard.TextNotAdmin)
		},
	}
}

// adminProbe answers the chat-admin question for the command gate. The
// roster is authoritative; when it says no, the live chat-member status is
// probed once and a positive answer is recorded as a grant, so admins the
// bot never saw promoted still pass (lazy roster sync).
func (a *App) adminProbe(chatID, userID int64) (bool, error) {
	ctx := context.Background()
	ok, err := a.roster.IsAdmin(ctx, chatID, userID)
	if err != nil || ok {
		return ok, err
	}

	b := a.messenger.Bot()
	if b == nil {
		return false, nil
	}
	member, err := b.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
	if err != nil {
		// The probe is best-effort; an API hiccup must not grant anything.
		return false, nil
	}
	if member.Role != tele.Creator && member.Role != tele.Administrator {
		return false, nil
	}
	if err := a.roster.Grant(ctx, chatID, userID); err != nil {
		return false, err
	}
	return true, nil
}

func (a *App) memberRoutes() []tg.Route {
	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnAddedToGroup, Handler: wrap(a.handleAddedToGroup)},
		{Endpoint: tele.OnUserJoined, Handler: wrap(a.handleUserJoined)},
		{Endpoint: tele.OnUserLeft, Handler: wrap(a.handleUserLeft)},
	}
}
