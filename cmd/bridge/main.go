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

	"github.com/swarmdeck/core/internal/auth"
	"github.com/swarmdeck/core/internal/bridge"
	"github.com/swarmdeck/core/internal/config"
	"github.com/swarmdeck/core/internal/logging"
	"github.com/swarmdeck/core/internal/notify"
	"github.com/swarmdeck/core/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "swarmdeck-bridge",
		Short: "real-time WebSocket event bridge for the swarmdeck coordination backbone",
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
	log := logging.WithComponent("cmd.bridge")

	notifyURL := fmt.Sprintf("nats://127.0.0.1:%d", cfg.NATS.Port)
	notifyClient, err := notify.Connect(notifyURL, "bridge")
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

	minter := auth.NewMinter(cfg.Auth.WSAuthSecret)
	br := bridge.New(st, minter, notifyClient, cfg.Server.DevMode)
	if err := br.Start(); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}
	defer br.Stop()

	mux := http.NewServeMux()
	mux.Handle("/", br)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.WSPort),
		Handler: mux,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("WebSocket bridge listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("bridge server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("bridge server shutdown error")
	}

	log.Info().Msg("bridge shutdown complete")
	return nil
}
