package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"parley/internal/client"
	"parley/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func run(ctx context.Context) error {
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)

	link, err := client.Dial(ctx, cfg.ServerURL)
	if err != nil {
		return err
	}
	defer func() { _ = link.Close() }()

	machine := client.New(link, os.Stdout, cfg.RequestTimeout)
	go machine.Attach(link)
	go func() {
		if err := machine.ReadInput(os.Stdin); err != nil {
			log.Warn().Err(err).Msg("failed to read input")
		}
	}()

	return machine.Run(ctx)
}

func main() {
	serverURL := flag.String("server", "", "Chat server websocket URL (overrides PARLEY_SERVER_URL)")
	flag.Parse()

	if *serverURL != "" {
		_ = os.Setenv("PARLEY_SERVER_URL", *serverURL)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("client error")
	}
}
