package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/df-mc/dragonfly/server"
	"github.com/df-mc/dragonfly/server/player/chat"
	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/oriumgames/parkour"
)

func main() {
	log := slog.Default()
	chat.Global.Subscribe(chat.StdoutSubscriber{})

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
			log.Error("sentry init failed", "err", err)
		}
		defer sentry.Flush(time.Second * 5)
	}
	if addr := os.Getenv("PARKOUR_STATSVIEW"); addr != "" {
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(addr))
		go statsview.New().Start()
	}

	pconf, err := parkour.LoadConfig("parkour.toml")
	if err != nil {
		panic(err)
	}
	levels, err := parkour.LoadLevels("levels.toml", pconf.Direction.Epsilon)
	if err != nil {
		panic(err)
	}

	conf, err := server.DefaultConfig().Config(log)
	if err != nil {
		panic(err)
	}
	srv := conf.New()
	srv.CloseOnProgramEnd()

	mngr := parkour.NewBuilder().
		Config(pconf).
		Logger(log).
		Levels(levels).
		Init()
	defer mngr.Shutdown()

	parkour.RegisterCommands()
	log.Info("parkour levels loaded", "count", levels.Len())

	srv.Listen()
	for p := range srv.Accept() {
		p.Handle(parkour.NewPlayerHandler(mngr))
	}
}
