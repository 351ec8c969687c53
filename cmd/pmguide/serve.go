package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/pmguide/internal/cli"
	"github.com/aretw0/pmguide/internal/validator"
	httpAdapter "github.com/aretw0/pmguide/pkg/adapters/http"
	"github.com/aretw0/pmguide/pkg/adapters/loam"
	"github.com/aretw0/pmguide/pkg/observability"
	"github.com/aretw0/pmguide/pkg/progress"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long:  `Starts the dialogue engine behind the JSON API: chat, sessions, documents and per-user progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := cli.OpenBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := backend.Close(); err != nil {
				logger.Error("Failed to close store", "err", err)
			}
		}()

		metrics := observability.NewMetrics()
		engine := cli.NewEngine(cfg, backend, logger, metrics.Hooks())

		opts := []httpAdapter.Option{
			httpAdapter.WithProgress(progress.NewService(backend.Progress, engine.Knowledge(), progress.WithLogger(logger))),
			httpAdapter.WithValidator(validator.New(validator.WithMaxMessageLength(cfg.MaxMessageLength))),
			httpAdapter.WithMetrics(metrics.Handler()),
			httpAdapter.WithCORSOrigins(cfg.CORSOrigins...),
			httpAdapter.WithVersion(cfg.APIVersion),
			httpAdapter.WithLogger(logger),
		}
		if templates, err := loam.Open(cfg.TemplatesDir); err != nil {
			logger.Warn("Template directory unavailable, downloads disabled", "dir", cfg.TemplatesDir, "err", err)
		} else {
			opts = append(opts, httpAdapter.WithTemplates(templates))
		}

		srv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           httpAdapter.NewHandler(engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting pmguide server",
				"addr", srv.Addr,
				"store", backend.Driver,
				"knowledge", engine.Knowledge().Source(),
			)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("Start shutdown")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Graceful shutdown did not complete", "timeout", 5*time.Second, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("pmguide server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides PORT)")
}
