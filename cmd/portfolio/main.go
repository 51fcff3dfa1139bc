package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	status := commander.Execute(ctx)
	stop()
	os.Exit(int(status))
}

// commands는 portfolio 바이너리가 제공하는 하위 명령 목록입니다
var commands = []subcommands.Command{
	&serveCmd{},
	&ingestCmd{},
	&migrateCmd{},
	&assetCmd{},
	&depositCmd{},
	&openCmd{},
}
