package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/accountservice"
	"github.com/go-petr/pet-ledger/internal/accountstore"
	"github.com/go-petr/pet-ledger/internal/domain"
)

func parseAccountID(s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil || !domain.ValidAccountID(int32(id)) {
		return 0, fmt.Errorf("%w: account id must be 8 digits, got %q", domain.ErrValidation, s)
	}

	return int32(id), nil
}

func newHistoryCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Print the history of one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccountID(args[0])
			if err != nil {
				return err
			}

			config, logger, err := load()
			if err != nil {
				return err
			}

			ctx := logger.WithContext(cmd.Context())

			repo, db, err := httpserver.OpenRepo(ctx, config)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			store := accountstore.New(repo)
			if _, err := store.Load(ctx); err != nil {
				return err
			}

			history, err := accountservice.New(store, nil).History(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, entry := range history {
				fmt.Fprintln(out, entry)
			}

			return nil
		},
	}
}
