package main

import (
	"context"
	"lawline/app/client/assistant"
	"lawline/app/client/telegram"
	"lawline/app/config"
	"lawline/app/server"
	"lawline/app/service/chat"
	"lawline/app/service/convstate"
	"lawline/app/service/leads"
	"lawline/app/service/runner"
	"lawline/app/service/watchdog"
	"lawline/app/util/mylog"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	do.Provide(di, assistant.NewClient)
	do.Provide(di, telegram.NewClient)
	do.Provide(di, convstate.New)
	do.Provide(di, leads.New)
	do.Provide(di, runner.New)
	do.Provide(di, runner.NewJudge)
	do.Provide(di, watchdog.New)
	do.Provide(di, chat.New)
	do.Provide(di, server.New)

	slog.Info("Service started")

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	go func() {
		if err := do.MustInvoke[*server.Server](di).Run(appCtx); err != nil {
			slog.Error("HTTP server stopped", "error", err)
			cancel()
		}
	}()

	<-appCtx.Done()
}
