package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/assist-by/portfolio/internal/api"
	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/exchange/binance"
	"github.com/assist-by/portfolio/internal/market"
	"github.com/assist-by/portfolio/internal/scheduler"
	"github.com/assist-by/portfolio/internal/stream"
	"github.com/google/subcommands"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type serveCmd struct {
	debug bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API, candle collector and optional streams" }
func (*serveCmd) Usage() string {
	return `serve [-debug]

  Starts the HTTP API. Candles for active assets are collected every
  FETCH_INTERVAL. When STREAM_ENABLED is true the live kline stream is merged
  into the candle store, and when KAFKA_BROKERS is set trade requests are
  consumed from KAFKA_TOPIC.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.debug, "debug", false, "development logging")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, c.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := a.serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("serve stopped", zap.Error(err))
		return subcommands.ExitFailure
	}
	a.logger.Info("shutdown complete")
	return subcommands.ExitSuccess
}

func (a *app) serve(ctx context.Context) error {
	interval := a.cfg.CandleInterval()
	g, ctx := errgroup.WithContext(ctx)

	server := api.NewServer(api.Services{
		DB:             a.db,
		Engine:         a.engine,
		Wallet:         a.wallet,
		Book:           a.book,
		Valuation:      a.valuation,
		Prices:         a.cache,
		Assets:         a.assets,
		CandleInterval: interval,
	}, a.logger.Named("http"))
	g.Go(func() error { return server.Run(ctx, a.cfg.HTTP.Port) })

	collector := market.NewCollector(a.cache, a.assets, a.notifier, interval,
		market.WithCollectorLogger(a.logger.Named("collector")))
	sched := scheduler.NewScheduler(a.cfg.Market.FetchInterval, collector, a.logger.Named("scheduler"))
	g.Go(func() error { return sched.Start(ctx) })

	if a.cfg.Market.StreamEnabled {
		g.Go(func() error { return a.runKlineStream(ctx, interval) })
	}

	if a.cfg.TradeStreamEnabled() {
		consumer := stream.NewConsumer(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic, a.cfg.Kafka.GroupID,
			a.engine, a.logger.Named("consumer"))
		g.Go(func() error { return consumer.Run(ctx) })
	}

	if err := a.notifier.SendInfo("portfolio service started"); err != nil {
		a.logger.Warn("startup notification failed", zap.Error(err))
	}
	return g.Wait()
}

// runKlineStream은 시작 시점의 활성 자산을 구독해 진행 중인 캔들을 병합합니다
func (a *app) runKlineStream(ctx context.Context, interval domain.TimeInterval) error {
	active, err := a.assets.ActiveAssets(ctx)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		a.logger.Warn("kline stream disabled: no active assets")
		return nil
	}
	symbols := make([]string, 0, len(active))
	for _, asset := range active {
		symbols = append(symbols, asset.Pair())
	}

	s := binance.NewStream(a.cfg.Market.StreamURL, interval, a.logger.Named("stream"))
	return s.Run(ctx, symbols, func(ctx context.Context, c domain.Candle) error {
		return a.cache.Merge(ctx, c)
	})
}
