package main

import (
	"context"
	"fmt"
	"time"

	"github.com/assist-by/portfolio/internal/config"
	"github.com/assist-by/portfolio/internal/exchange/binance"
	"github.com/assist-by/portfolio/internal/ledger"
	"github.com/assist-by/portfolio/internal/market"
	"github.com/assist-by/portfolio/internal/notification"
	"github.com/assist-by/portfolio/internal/notification/discord"
	"github.com/assist-by/portfolio/internal/storage"
	"github.com/assist-by/portfolio/internal/storage/memory"
	"github.com/assist-by/portfolio/internal/storage/postgres"
	"github.com/assist-by/portfolio/internal/trading"
	"github.com/assist-by/portfolio/internal/valuation"
	"github.com/assist-by/portfolio/internal/wallet"
	"go.uber.org/zap"
)

// marketTimeout은 외부 시세 HTTP 요청 하나의 제한 시간입니다
const marketTimeout = 10 * time.Second

// app은 설정에 따라 조립된 서비스 구성요소입니다
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db        storage.DB
	candles   storage.CandleStore
	assets    storage.AssetRegistry
	market    *binance.Client
	cache     *market.Cache
	wallet    *wallet.Account
	book      *ledger.Book
	engine    *trading.Engine
	valuation *valuation.Aggregator
	notifier  notification.Notifier

	closers []func()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newApp은 설정을 읽고 저장소, 시세, 거래 구성요소를 연결합니다
func newApp(ctx context.Context, debug bool) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("로거 생성 실패: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.notifier = notification.Nop{}
	if d := cfg.Discord; d.TradeWebhook != "" || d.ErrorWebhook != "" || d.InfoWebhook != "" {
		a.notifier = discord.NewClient(d.TradeWebhook, d.ErrorWebhook, d.InfoWebhook)
	}

	a.market = binance.NewClient(cfg.Market.APIKey, cfg.Market.SecretKey,
		binance.WithBaseURL(cfg.Market.BaseURL),
		binance.WithTimeout(marketTimeout),
	)
	a.cache, err = market.NewCache(a.candles, a.market,
		market.WithQuoteTTL(cfg.Market.QuoteTTL),
		market.WithLogger(logger.Named("market")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.cache.Close)

	policy, err := valuation.ParsePricePolicy(cfg.Valuation.PricePolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.wallet = wallet.NewAccount(
		wallet.WithInitialBalance(cfg.Trading.InitialBalance),
		wallet.WithLogger(logger.Named("wallet")),
	)
	a.book = ledger.NewBook()
	a.engine = trading.NewEngine(a.db, a.cache, a.assets, a.wallet, a.book,
		trading.Config{
			FeeRate:           cfg.Trading.FeeRate,
			MinimumInvestment: cfg.Trading.MinimumInvestment,
			PriceTimeout:      cfg.Trading.PriceTimeout,
		},
		trading.WithNotifier(a.notifier),
		trading.WithLogger(logger.Named("trading")),
	)
	a.valuation = valuation.NewAggregator(a.db, a.book, a.cache,
		valuation.WithPolicy(policy),
		valuation.WithLogger(logger.Named("valuation")),
	)
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	switch a.cfg.Database.Storage {
	case config.StorageMemory:
		a.logger.Warn("using in-memory storage; state is lost on exit")
		a.db = memory.New()
		a.candles = memory.NewCandleStore()
		a.assets = memory.NewAssetRegistry()
		return nil
	default:
		pool, err := postgres.Connect(ctx, a.cfg.Database.URL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}

		candles, err := postgres.OpenCandleStore(ctx, a.cfg.Database.URL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = candles.Close() })

		a.db = postgres.New(pool, a.logger.Named("postgres"))
		a.candles = candles
		a.assets = postgres.NewAssetRegistry(pool)
		return nil
	}
}

// Close는 열린 자원을 역순으로 정리합니다
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
