package main

import (
	"fmt"
	"os"

	"github.com/FeFenix/Pointify/bot"
	"github.com/FeFenix/Pointify/core/cmd"
	coreconfig "github.com/FeFenix/Pointify/core/config"
)

func main() {
	var app *bot.App

	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			cfg, err := coreconfig.Load(path)
			if err != nil {
				return nil, err
			}
			return carrier{cfg}, nil
		},
		Bootstrap: func(cc cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			a, err := bot.New(cc.CoreConfig())
			if err != nil {
				return nil, err
			}
			app = a
			return a, nil
		},
	})

	if app != nil {
		_ = app.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "pointify:", err)
		os.Exit(1)
	}
}

type carrier struct {
	cfg *coreconfig.Config
}

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }
