package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/accountstore"
)

var errSkippedRecords = errors.New("ledger has unreadable records")

func newVerifyCmd(load loadFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every persisted record can be read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			res, err := store.Load(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "accounts: %d\n", store.Len())
			fmt.Fprintf(out, "total balance: %d\n", store.Total())

			for _, s := range res.Skipped {
				fmt.Fprintf(out, "skipped: %v\n", s)
			}

			if len(res.Skipped) > 0 {
				return fmt.Errorf("%w: %d", errSkippedRecords, len(res.Skipped))
			}

			return nil
		},
	}
}
