package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"s2j/internal/config"
	"s2j/internal/listener"
	"s2j/internal/pricing"
	"s2j/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := pricing.NewSheetStore(ctx, cfg)
	must(err)
	cache := pricing.NewCache(store, time.Duration(cfg.PricingCacheMaxAgeSec)*time.Second)

	svc := listener.NewService(db, cfg, cache)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
