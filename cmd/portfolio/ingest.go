package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/assist-by/portfolio/internal/market"
	"github.com/google/subcommands"
)

type ingestCmd struct {
	symbol   string
	interval string
	since    string
}

func (*ingestCmd) Name() string     { return "ingest" }
func (*ingestCmd) Synopsis() string { return "fetch candles from the market and merge them into the store" }
func (*ingestCmd) Usage() string {
	return `ingest [-symbol <symbol>] [-interval <interval>] [-since <RFC3339>]

  Without -symbol, runs one collection cycle over every active asset.
  -since defaults to the last stored candle, or 24 hours ago.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "asset or pair symbol (e.g. BTC or BTCUSDT)")
	f.StringVar(&c.interval, "interval", "", "candle interval (defaults to CANDLE_INTERVAL)")
	f.StringVar(&c.since, "since", "", "start time in RFC3339")
}

func (c *ingestCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp(ctx, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	interval := a.cfg.CandleInterval()
	if c.interval != "" {
		if interval, err = domain.ParseTimeInterval(c.interval); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	var since *time.Time
	if c.since != "" {
		t, err := time.Parse(time.RFC3339, c.since)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: -since must be RFC3339: %v\n", err)
			return subcommands.ExitUsageError
		}
		since = &t
	}

	if c.symbol == "" {
		if since != nil {
			fmt.Fprintln(os.Stderr, "Error: -since requires -symbol")
			return subcommands.ExitUsageError
		}
		counts, err := market.NewCollector(a.cache, a.assets, a.notifier, interval,
			market.WithCollectorLogger(a.logger.Named("collector"))).Collect(ctx)
		for symbol, n := range counts {
			fmt.Printf("%s\t%d\n", symbol, n)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	n, err := a.cache.Ingest(ctx, c.symbol, interval, since)
	fmt.Printf("%s\t%d\n", domain.PairSymbol(c.symbol), n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
