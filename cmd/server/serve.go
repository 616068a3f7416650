package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"autobill/backend/internal/httpapi"
	"autobill/backend/internal/invoice"
	"autobill/backend/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the billing HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := validateSecurityConfig(cfg); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			catalog := newCatalog(cfg)
			// Open eagerly so a bad DSN fails at startup rather than on the first sale.
			if err := catalog.Init(ctx); err != nil {
				return err
			}
			log.Info("catalog ready", "driver", cfg.CatalogDriver)

			suggestionCache, closeCache := newSuggestionCache(ctx, cfg, log)

			renderer := invoice.NewRenderer(cfg.Shop, cfg.BillPrefix)
			svc := service.New(catalog, suggestionCache, renderer, service.Options{
				SuggestionTTL: time.Duration(cfg.SuggestionTTLSeconds) * time.Second,
			})
			auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.OwnerUsername, cfg.OwnerPassword)
			api := httpapi.New(svc, auth, cfg.AllowedOrigin)

			server := &http.Server{
				Addr:              cfg.Address(),
				Handler:           api.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				log.Info("billing backend listening", "addr", cfg.Address())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sig)

			var runErr error
			select {
			case <-sig:
			case runErr = <-serveErr:
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown error", "error", err)
			}

			for _, closeFn := range []func() error{closeCache, catalog.Close} {
				if err := closeFn(); err != nil {
					log.Error("close error", "error", err)
				}
			}

			log.Info("server stopped")
			return runErr
		},
	}
}
