package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"seafood-agent/internal/app"
	"seafood-agent/internal/platform/logger"
	"seafood-agent/internal/server"
)

func main() {
	cfg, err := app.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	a, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("failed to build app", zap.Error(err))
	}

	rc := server.RouterConfig{Webhook: a.Handler, Log: log}
	if a.Ledger != nil {
		rc.Accounts = a.Ledger
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Info("listening", zap.String("addr", addr))
	if err := server.NewRouter(rc).Run(addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
