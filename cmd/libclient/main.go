// Command libclient is an interactive client for the library REST service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"library-client/application/library"
	"library-client/application/util/domain"
	"library-client/transport/tcp"

	"github.com/benbjohnson/clock"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flagSet := flag.NewFlagSet("libclient", flag.ContinueOnError)
	var (
		configPath = flagSet.String("config", "", "path to a YAML configuration file")
		host       = flagSet.String("host", "", "server address or domain name (overrides the configuration)")
		port       = flagSet.Uint("port", 0, "server port (overrides the configuration)")
		verbose    = flagSet.Bool("v", false, "log every exchange")
	)
	if err := flagSet.Parse(args); err != nil {
		return 2
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		return 1
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		if *port > 65535 {
			fmt.Fprintln(os.Stderr, "ERROR: port out of range:", *port)
			return 2
		}
		cfg.Server.Port = uint16(*port)
	}
	if *verbose {
		cfg.Log.Level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := library.New(
		tcp.NewDialer(logger, cfg.DialOptions()),
		domain.NewResolverLookuper(nil),
		logger,
		clock.New(),
		cfg.LibraryOptions(),
	)

	if err := newShell(client, os.Stdin, os.Stdout).run(ctx); err != nil {
		logger.Error("reading commands", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
