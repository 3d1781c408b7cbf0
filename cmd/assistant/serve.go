package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"chaos-car/internal/infra/natsbus"
	"chaos-car/internal/infra/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket server, NATS responder and headless source",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := build(ctx, cfg, logger, buildOptions{headless: true})
	if err != nil {
		return fmt.Errorf("building assistant: %w", err)
	}
	defer c.Close()

	logger.Info("starting chaos car assistant",
		"provider", c.assistant.Provider(),
		"chaos_pct", cfg.Chaos.Percent,
		"source", cfg.Source.Kind,
		"nats", cfg.NATS.Enabled,
	)

	var transport *natsbus.Transport
	if cfg.NATS.Enabled {
		transport, err = natsbus.Connect(natsbus.Options{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
			Timeout: cfg.NATS.Timeout,
		}, c.assistant, logger)
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	server := web.NewServer(c.assistant, web.Options{
		Addr:           cfg.HTTP.Addr,
		AuthToken:      cfg.HTTP.AuthToken,
		RateLimit:      cfg.HTTP.RateLimit,
		RateWindow:     cfg.HTTP.RateWindow,
		Debounce:       cfg.Speech.Debounce,
		SpeakTimeout:   cfg.Speech.SpeakTimeout,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}, logger)
	g.Go(func() error {
		return server.Run(ctx)
	})

	if transport != nil {
		g.Go(func() error {
			return transport.Run(ctx)
		})
	}

	if c.source != nil {
		g.Go(func() error {
			err := c.assistant.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	err = g.Wait()
	logger.Info("shut down")
	return err
}
