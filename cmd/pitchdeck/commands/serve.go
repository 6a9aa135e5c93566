package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spherical/pitchdeck-analyzer/internal/api"
	"github.com/spherical/pitchdeck-analyzer/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if servePort > 0 {
			cfg.Server.Port = servePort
		}

		components, err := pipeline.Build(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer components.Close()

		router := api.NewRouter(logger, api.Config{
			RequestTimeout:        cfg.Server.RequestTimeout,
			MaxUploadBytes:        cfg.Server.MaxUploadBytes,
			DefaultForceOCR:       cfg.Extraction.ForceOCR,
			DefaultLookupFounders: cfg.Lookup.Enabled,
			Version:               Version,
		}, components.Service, components.Coordinator)

		srv := &http.Server{
			Addr:         cfg.Addr(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info().
				Str("addr", srv.Addr).
				Bool("founder_lookup", components.Service.LookupAvailable()).
				Msg("HTTP server listening")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Server error")
				return err
			}
		case sig := <-shutdown:
			logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
			if err := srv.Close(); err != nil {
				logger.Error().Err(err).Msg("Forced shutdown failed")
			}
		}

		logger.Info().Msg("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "override the listen port")
	rootCmd.AddCommand(serveCmd)
}
