package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"med-reminder/internal/adapters/notify"
	"med-reminder/internal/platform/config"
	"med-reminder/internal/platform/logger"
	"med-reminder/internal/router"
)

func main() {
	cfg := config.LoadFromEnv()
	log := logger.NewFromEnv()

	app, err := router.New(router.Options{Config: cfg, Logger: log})
	if err != nil {
		log.Error("app setup failed", map[string]any{"err": err.Error()})
		os.Exit(1)
	}

	if err := app.Service.Init(context.Background()); err != nil {
		log.Error("store init failed", map[string]any{"err": err.Error()})
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// contexto raíz: muere con SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Notify.WebhookURL != "" {
		n := notify.New(app.Engine, notify.Options{
			WebhookURL: cfg.Notify.WebhookURL,
			Interval:   cfg.Notify.Interval,
			Logger:     log,
		})
		go n.Run(ctx)
	}

	go func() {
		log.Info("starting server", map[string]any{
			"addr":    srv.Addr,
			"backend": string(cfg.Store.Backend),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", map[string]any{"err": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()

	// apagado ordenado: primero el server, después el store
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", map[string]any{"err": err.Error()})
	}
	if err := app.Service.Close(); err != nil {
		log.Warn("store close", map[string]any{"err": err.Error()})
	}
	log.Info("bye", nil)
}
