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

	"github.com/go-petr/pet-ledger/cmd/httpserver"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the ledger and serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, logger, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server, err := httpserver.New(ctx, logger, config)
			if err != nil {
				logger.Error().Err(err).Msg("cannot create server")
				return err
			}
			defer server.Close()

			srv := &http.Server{
				Addr:              config.ServerAddress,
				Handler:           server,
				ReadHeaderTimeout: 5 * time.Second,
			}

			errc := make(chan error, 1)

			go func() {
				errc <- srv.ListenAndServe()
			}()

			logger.Info().Str("address", config.ServerAddress).Msg("LEDGER API SERVER HAS STARTED")

			select {
			case err := <-errc:
				if !errors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Msg("cannot start server")
					return err
				}
			case <-ctx.Done():
				logger.Info().Msg("shutting down")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Error().Err(err).Msg("shutdown failed")
					return err
				}
			}

			return nil
		},
	}
}
