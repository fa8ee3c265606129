package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verbale-app/verbale/internal/config"
	"github.com/verbale-app/verbale/internal/credstore"
	"github.com/verbale-app/verbale/internal/drive"
	"github.com/verbale-app/verbale/internal/httpapi"
	"github.com/verbale-app/verbale/internal/msauth"
	"github.com/verbale-app/verbale/internal/notify"
	"github.com/verbale-app/verbale/internal/store"
	"github.com/verbale-app/verbale/internal/summarize"
	"github.com/verbale-app/verbale/internal/transcribe"
	"github.com/verbale-app/verbale/internal/watch"
)

// Fallbacks for duration fields; validation guarantees the configured values
// parse, so these only matter for zero-value Config structs in tests.
const (
	fallbackShutdownTimeout = 10 * time.Second
	fallbackSessionTTL      = 24 * time.Hour
	fallbackHTTPTimeout     = 30 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the backend service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadOrDefault(flagConfigPath)
			if err != nil {
				return err
			}

			return runServe(cmd.Context(), cfg)
		},
	}
}

// runServe wires the full service and blocks until shutdown.
func runServe(ctx context.Context, cfg *config.Config) error {
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	creds := credstore.New()

	auth := msauth.New(msauth.Options{
		ClientID:     cfg.OneDrive.ClientID,
		ClientSecret: cfg.OneDrive.ClientSecret,
		Tenant:       cfg.OneDrive.Tenant,
		RedirectURL:  cfg.OneDrive.RedirectURL,
		Scopes:       cfg.OneDrive.Scopes,
	}, creds, logger)

	httpClient := &http.Client{
		Timeout: config.Duration(cfg.OneDrive.HTTPTimeout, fallbackHTTPTimeout),
	}
	uploader := drive.NewUploader(auth, cfg.OneDrive.BaseURL, httpClient, logger)

	summarizer, err := summarize.New(ctx, cfg.Transcribe.APIKey, cfg.Summarize.Model, logger)
	if err != nil {
		return fmt.Errorf("creating summarizer: %w", err)
	}

	transcriber, err := transcribe.New(ctx, cfg.Transcribe.APIKey, cfg.Transcribe.Model,
		cfg.Transcribe.MaxAudioBytes, logger)
	if err != nil {
		return fmt.Errorf("creating transcriber: %w", err)
	}

	hub := notify.NewHub([]string{cfg.Server.FrontendURL}, logger)
	defer hub.Close()

	server := httpapi.New(httpapi.Options{
		Auth:        auth,
		Uploader:    uploader,
		Store:       st,
		Hub:         hub,
		Summarizer:  summarizer,
		Transcriber: transcriber,
		Sessions:    httpapi.NewSessions(cfg.Server.SessionSecret, config.Duration(cfg.Server.SessionTTL, fallbackSessionTTL)),
		FrontendURL: cfg.Server.FrontendURL,
		Logger:      logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", slog.String("addr", cfg.Server.ListenAddr))

		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	if cfg.Watch.Enabled {
		watcher := watch.New(cfg.Watch.InboxDir, st, hub, logger)

		g.Go(func() error {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("inbox watcher: %w", err)
			}

			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			config.Duration(cfg.Server.ShutdownTimeout, fallbackShutdownTimeout))
		defer cancel()

		logger.Info("shutting down")

		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
