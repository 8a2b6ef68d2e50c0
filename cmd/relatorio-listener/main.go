package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"painel/internal/config"
	"painel/internal/listener"
	"painel/internal/logging"
	"painel/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, err := logging.New(cfg.LogLevel)
	must(err)
	defer func() { _ = log.Sync() }()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
