// Package main provides the pet-ledger command: the HTTP API and ledger maintenance tools.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pet-ledger",
		Short: "Retail banking ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs", "directory holding app.env")

	load := func() (configpkg.Config, zerolog.Logger, error) {
		config, err := configpkg.Load(configPath)
		if err != nil {
			log.Error().Err(err).Msg("cannot load config")
			return config, zerolog.Nop(), err
		}

		return config, middleware.GetLogger(config), nil
	}

	rootCmd.AddCommand(
		newServeCmd(load),
		newVerifyCmd(load),
		newHistoryCmd(load),
	)

	return rootCmd
}

type loadFunc func() (configpkg.Config, zerolog.Logger, error)
