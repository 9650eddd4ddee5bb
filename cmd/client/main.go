package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/app"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/proxy"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/store"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/client/internal/stream"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	serverURL := flag.String("server", cfg.Client.ServerURL, "push channel url")
	apiBase := flag.String("api", cfg.Client.APIBase, "proxy api base url")
	statePath := flag.String("state", cfg.Client.StatePath, "state file (file backend)")
	flag.Parse()

	// Keep the terminal for the prompt; logs go to stderr
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kv, closeKV := openKV(cfg, *statePath, logger)
	defer closeKV()

	seed, err := app.LoadSeed(cfg.Client.WatchlistFile)
	if err != nil {
		logger.Fatal("Failed to read watchlist seed", zap.Error(err))
	}

	gw := proxy.NewClient(*apiBase, &http.Client{Timeout: cfg.Upstream.Timeout + 5*time.Second})
	a, err := app.New(ctx, store.New(kv), gw, seed, app.Options{
		InitialCash:  decimal.NewFromFloat(cfg.Client.StartingCash),
		SeriesLimit:  cfg.Client.SeriesLimit,
		HistoryLimit: cfg.Client.HistoryLimit,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to load client state", zap.Error(err))
	}

	sub := stream.NewSubscriber(*serverURL, cfg.Client.ReconnectDelay, logger)
	go sub.Run(ctx, a.OnSnapshot)
	go a.RunSampler(ctx, cfg.Client.HistoryInterval)

	repl(ctx, cancel, a)
}

func repl(ctx context.Context, cancel context.CancelFunc, a *app.App) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		cancel()
	}()

	fmt.Println(`type "help" for commands`)
	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line := <-lines:
			err := a.Exec(ctx, line, os.Stdout)
			if errors.Is(err, app.ErrQuit) {
				return
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
		}
	}
}

func openKV(cfg *config.Config, statePath string, logger *zap.Logger) (store.KV, func()) {
	if cfg.Client.StateBackend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		kv := store.NewRedisKV(rdb)
		return kv, func() { kv.Close() }
	}

	kv, err := store.OpenFileKV(statePath)
	if err != nil {
		logger.Fatal("Failed to open state file", zap.String("path", statePath), zap.Error(err))
	}
	return kv, func() {}
}
