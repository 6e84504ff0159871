package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/emlanis/secret-ai-writer/internal/cli/commands"
	"github.com/emlanis/secret-ai-writer/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Load unified config (env + flags)
	cfg := config.NewConfig()

	if cfg.Version {
		printVersion()
		return
	}

	// zap development пишет в stderr: stdout остаётся под JSON-ответы
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	commands.SetLogger(logger.Sugar())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// dispatcher
	exitCode := commands.Dispatch(ctx, cfg, flag.Args())
	if exitCode == 0 {
		return
	}
	cancel()
	_ = logger.Sync()
	os.Exit(exitCode)
}

func printVersion() {
	fmt.Printf("Secret AI Writer CLI\nVersion: %s\nBuild date: %s\n", version, buildDate)
}
