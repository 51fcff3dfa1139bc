package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/assist-by/portfolio/internal/domain"
	"github.com/google/subcommands"
)

type assetCmd struct {
	symbol   string
	name     string
	category string
	inactive bool
	list     bool
}

func (*assetCmd) Name() string     { return "asset" }
func (*assetCmd) Synopsis() string { return "register, update or list tradable assets" }
func (*assetCmd) Usage() string {
	return `asset -symbol <symbol> [-name <name>] [-category <category>] [-inactive]
asset -list

  Registers or updates an asset. Symbols are stored without the quote
  currency (BTCUSDT becomes BTC). Inactive assets cannot be traded and are
  skipped by the collector.
`
}

func (c *assetCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "symbol", "", "asset symbol (required unless -list)")
	f.StringVar(&c.name, "name", "", "display name")
	f.StringVar(&c.category, "category", "crypto", "asset category")
	f.BoolVar(&c.inactive, "inactive", false, "register the asset as not tradable")
	f.BoolVar(&c.list, "list", false, "list registered assets")
}

func (c *assetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !c.list && c.symbol == "" {
		fmt.Fprintln(os.Stderr, "Error: -symbol or -list is required")
		return subcommands.ExitUsageError
	}

	a, err := newApp(ctx, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if c.list {
		assets, err := a.assets.Assets(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		for _, asset := range assets {
			fmt.Printf("%s\t%s\t%s\tactive=%t\n", asset.Symbol, asset.Name, asset.Category, asset.Active)
		}
		return subcommands.ExitSuccess
	}

	asset := domain.Asset{
		Symbol:   domain.BaseSymbol(c.symbol),
		Name:     c.name,
		Category: c.category,
		Active:   !c.inactive,
	}
	if asset.Name == "" {
		asset.Name = asset.Symbol
	}
	if err := a.assets.UpsertAsset(ctx, asset); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("asset %s saved (pair %s)\n", asset.Symbol, asset.Pair())
	return subcommands.ExitSuccess
}
