package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/api"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/gateway"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/hub"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/journal"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/poller"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/prices"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/repository"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/cmd/gateway/internal/upstream"
	"github.com/YATIN072007/OPENSOURCE-Crypto-Stock-Market-Tracker/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	cache := newCache(cfg, logger)
	defer cache.Close()

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	equity := upstream.NewAlphaVantage(cfg.Upstream.AlphaVantageURL, cfg.Upstream.AlphaVantageKey, httpClient)
	if !equity.HasCredential() {
		logger.Warn("No Alpha Vantage key configured, stock quotes will be synthetic")
	}

	svc := prices.NewService(
		cache,
		upstream.NewCoinGecko(cfg.Upstream.CoinGeckoURL, httpClient),
		equity,
		upstream.NewSyntheticQuotes(upstream.NewRealRand()),
		cfg.Cache.TTL,
		logger,
	)

	wsHub := hub.NewHub(logger)

	var publisher poller.Publisher
	if cfg.Kafka.Enabled {
		j := newJournal(cfg, logger)
		defer j.Close()
		publisher = j
	}

	p := poller.NewPoller(logger, svc, wsHub, publisher, poller.RealClock{}, poller.Options{
		Interval:     cfg.Poller.Interval,
		CryptoIDs:    cfg.Poller.CryptoIDs,
		Currency:     cfg.Poller.Currency,
		StockSymbols: cfg.Poller.StockSymbols,
	})

	router := api.NewRouter(
		api.NewHandler(svc, api.LiveStatus{Hub: wsHub, Poller: p}, logger),
		api.RouterOptions{
			Stream:  gateway.ServeSSE(wsHub, logger, gateway.DefaultKeepAlive),
			WS:      gateway.ServeWS(wsHub, logger),
			Timeout: cfg.Upstream.Timeout + 5*time.Second,
		},
	)
	srv := &http.Server{Addr: cfg.App.Port, Handler: router}

	ctx, cancel := context.WithCancel(context.Background())
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		p.Run(ctx)
	}()

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	cancel()
	<-pollerDone

	// Close sinks first so long-lived streams do not hold Shutdown open
	wsHub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	logger.Info("Shutdown Complete")
}

func newCache(cfg *config.Config, logger *zap.Logger) repository.ResponseCache {
	if cfg.Cache.Backend != "redis" {
		logger.Info("Using in-memory response cache", zap.Duration("ttl", cfg.Cache.TTL))
		return repository.NewMemoryCache()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	logger.Info("Using redis response cache", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Cache.TTL))
	return repository.NewRedisCache(rdb)
}

func newJournal(cfg *config.Config, logger *zap.Logger) *journal.KafkaJournal {
	dialer := &journal.RealKafkaDialer{Dialer: &kafka.Dialer{Timeout: 10 * time.Second, DualStack: true}}
	creator := journal.NewTopicCreator(logger, dialer, journal.RealSleeper{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := creator.Create(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
		logger.Warn("Journal topic bootstrap failed, relying on auto-creation", zap.Error(err))
	}

	writer := journal.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	writer.Logger = kafka.LoggerFunc(logger.Sugar().Debugf)
	writer.ErrorLogger = kafka.LoggerFunc(logger.Sugar().Errorf)
	return journal.NewKafkaJournal(logger, writer)
}
