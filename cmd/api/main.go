package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/swarmdeck/core/internal/api"
	"github.com/swarmdeck/core/internal/auth"
	"github.com/swarmdeck/core/internal/config"
	"github.com/swarmdeck/core/internal/logging"
	"github.com/swarmdeck/core/internal/notify"
	"github.com/swarmdeck/core/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "swarmdeck-api",
		Short: "REST API process for the swarmdeck coordination backbone",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, JSONOutput: cfg.LogJSON})
	log := logging.WithComponent("cmd.api")

	broker, err := notify.StartBroker(cfg.NATS.Port)
	if err != nil {
		return fmt.Errorf("failed to start notify broker: %w", err)
	}
	defer broker.Shutdown()

	notifyClient, err := notify.Connect(broker.URL(), "api")
	if err != nil {
		return fmt.Errorf("failed to connect notify client: %w", err)
	}
	defer notifyClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, err := store.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns, notifyClient)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	sweeper := store.NewSweeper(st)
	sweeper.Start()
	defer sweeper.Stop()

	minter := auth.NewMinter(cfg.Auth.WSAuthSecret)
	srv := api.NewServer(st, minter, sweeper, cfg.Server.DevMode)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Router(),
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("REST API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("REST API server shutdown error")
	}

	log.Info().Msg("REST API shutdown complete")
	return nil
}
