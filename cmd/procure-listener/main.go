package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"procure/internal/config"
	"procure/internal/listener"
	"procure/internal/logging"
	"procure/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, err := logging.New(cfg.LogPath)
	must(err)
	defer log.Close()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("mail listener started provider=%s interval=%ds", cfg.MailListenerProvider, cfg.MailListenerIntervalSec)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
