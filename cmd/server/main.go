package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/emlanis/secret-ai-writer/internal/cli/bootstrap"
	"github.com/emlanis/secret-ai-writer/internal/config"
	"github.com/emlanis/secret-ai-writer/internal/handlers"
	"github.com/emlanis/secret-ai-writer/internal/middleware"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, cleanup, err := bootstrap.Open(cfg, sugar)
	if err != nil {
		sugar.Fatalw("failed to initialize client", "error", err)
	}
	defer func() {
		if err := cleanup(); err != nil {
			sugar.Warnw("failed to close journal", "error", err)
		}
	}()

	h := handlers.NewHandler(app.Writer, app.Storage, sugar, cfg)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"Mode", app.Storage.Mode().String(),
		"Contract", cfg.ContractAddress,
		"LCD", cfg.LCDURL,
		"DatabaseDSN", cfg.DatabaseDSN,
	)

	srv := &http.Server{Addr: cfg.BaseURL, Handler: h.Router, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("Starting server", "addr", cfg.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		sugar.Errorw("Server failed", "error", err)
	}
}
