// Command sheetctl edits and reconciles a daily sheet against the server
// from the terminal. Unsaved edits are parked as drafts until "save".
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"daily-sheet-service/internal/client"
	"daily-sheet-service/internal/config"
	"daily-sheet-service/internal/drafts"
	"daily-sheet-service/internal/sheetsync"
	"daily-sheet-service/internal/validation"
)

func main() {
	date := flag.String("date", "", "Sheet date (YYYY-MM-DD), defaults to today")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: sheetctl [-date YYYY-MM-DD] <command> [args]\n\n%s\nFlags:\n", commandHelp)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Error loading config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Client.BaseURL, cfg.Client.Timeout)
	store, closeStore := draftStore(ctx, cfg, api, logger)

	a := &app{
		cfg:    cfg,
		api:    api,
		store:  store,
		syncer: sheetsync.New(api, store, logger),
		validator: validation.New(validation.Options{
			RowLimit:  cfg.Sheet.RowLimit,
			LookAhead: cfg.Sheet.LookAhead(),
			LookBack:  cfg.Sheet.LookBack(),
		}),
		logger: logger,
		out:    os.Stdout,
	}

	err = a.run(ctx, *date, flag.Args())
	closeStore()
	if err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// draftStore parks drafts in Redis when REDIS_ADDRESS is set and on the
// server's draft cache otherwise.
func draftStore(ctx context.Context, cfg *config.Config, api *client.Client, logger logrus.FieldLogger) (drafts.Store, func()) {
	if cfg.Redis.Address == "" {
		return api.Drafts(), func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rdb, err := drafts.Connect(pingCtx, cfg.Redis.Address)
	if err != nil {
		logger.WithError(err).Warn("redis unavailable, parking drafts on the server")
		return api.Drafts(), func() {}
	}
	return drafts.NewRedisStore(rdb, cfg.Draft.TTL), func() { rdb.Close() }
}
