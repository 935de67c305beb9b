package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rustyeddy/copytrader/mirror"
	"github.com/spf13/cobra"
)

var closeCmd = &cobra.Command{
	Use:   "close <ticket>",
	Short: "Close an open position on the slave account",
	Long: `Log into the slave account and close the position with the given ticket at
market: buys close at the bid, sells at the ask.

Example:
  copytrader close 50123456`,
	Args: cobra.ExactArgs(1),
	RunE: runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	ticket, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("ticket %q: %w", args[0], err)
	}

	accounts, ok, err := loadAccounts(cmd)
	if err != nil || !ok {
		return err
	}

	ctx := context.Background()
	session := newSession()
	if err := session.Login(ctx, accounts.Slave); err != nil {
		return err
	}

	// no ledger outside a running engine: the ticket is the slave's own
	order, err := mirror.NewCloser(session, nil).CloseMirroredTrade(ctx, accounts.Slave, ticket)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Closed position %d on %s (order %d)\n", ticket, accounts.Slave, order)
	return nil
}
