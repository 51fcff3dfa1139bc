package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type depositCmd struct {
	user   int64
	amount string
}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "add cash to a user's balance" }
func (*depositCmd) Usage() string {
	return `deposit -user <id> -amount <amount>

  Credits the user's cash balance, creating the account if needed.
`
}

func (c *depositCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.user, "user", 0, "user id (required)")
	f.StringVar(&c.amount, "amount", "", "amount in the quote currency (required)")
}

func (c *depositCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, err := decimal.NewFromString(c.amount)
	if c.user <= 0 || err != nil {
		fmt.Fprintln(os.Stderr, "Error: -user and a numeric -amount are required")
		return subcommands.ExitUsageError
	}

	a, err := newApp(ctx, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	balance, err := a.wallet.Deposit(ctx, a.db, c.user, amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("user %d balance %s\n", c.user, balance)
	return subcommands.ExitSuccess
}

type openCmd struct {
	user int64
}

func (*openCmd) Name() string     { return "open" }
func (*openCmd) Synopsis() string { return "open an account with the initial balance" }
func (*openCmd) Usage() string {
	return `open -user <id>

  Creates the account and credits INITIAL_BALANCE. Does nothing if the
  account already exists.
`
}

func (c *openCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.user, "user", 0, "user id (required)")
}

func (c *openCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.user <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -user is required")
		return subcommands.ExitUsageError
	}

	a, err := newApp(ctx, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	acct, err := a.wallet.Open(ctx, a.db, c.user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("user %d balance %s\n", acct.UserID, acct.Balance)
	return subcommands.ExitSuccess
}
