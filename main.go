package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/chucky-1/papertrader/internal/config"
	"github.com/chucky-1/papertrader/internal/feed"
	"github.com/chucky-1/papertrader/internal/portfolio"
	"github.com/chucky-1/papertrader/internal/repository"
	"github.com/chucky-1/papertrader/internal/server"
	"github.com/chucky-1/papertrader/internal/server/ws"
	"github.com/chucky-1/papertrader/internal/trader"
	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Configuration
	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file loaded")
	}
	cfg := new(config.Config)
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis cache for last known quotes, optional
	var quoteCache trader.QuoteCache
	if cfg.HostRedisCache != "" {
		hostAndPort := fmt.Sprint(cfg.HostRedisCache, ":", cfg.PortRedisCache)
		ring := redis.NewRing(&redis.RingOptions{Addrs: map[string]string{cfg.ServerRedisCache: hostAndPort}})
		quoteCache = repository.NewCache(cache.New(&cache.Options{Redis: ring}))
	}

	ledger := portfolio.NewLedger()
	feedClient := feed.NewClient(cfg.FeedURL, cfg.FeedAPIKey)
	hub := ws.NewHub()

	tr := trader.NewTrader(ctx, ledger, feedClient, quoteCache, hub, trader.Options{
		SymbolLimit:     cfg.SymbolLimit,
		RefreshInterval: cfg.RefreshInterval,
		ErrorTTL:        cfg.ErrorTTL,
	})
	defer tr.Close()

	srv := server.New(server.Config{Host: cfg.HostHTTP, Port: cfg.PortHTTP}, tr, hub)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return hub.Run(groupCtx)
	})
	group.Go(func() error {
		return srv.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.AutoLaunch {
		if err := tr.Launch(ctx, cfg.BaseCurrency, cfg.StartingCash); err != nil {
			// The session can still be launched over the API once the
			// feed is back.
			log.Error(err)
		}
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("%v", err)
	}
}
