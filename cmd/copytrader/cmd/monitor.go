package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/copytrader/journal"
	"github.com/rustyeddy/copytrader/mirror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the master account and copy new trades to the slave",
	Long: `Log into the master account and poll its open positions. Every new position
with both a stop loss and a take profit is copied onto the slave account.

Positions already open when monitoring starts are never copied. The command
runs until interrupted, or until it can no longer log back into the master
account.

Settings come from COPYTRADER_* environment variables or the --env-file:
  COPYTRADER_TERMINAL_URL         terminal bridge address
  COPYTRADER_MIRROR_POLL_INTERVAL time between polls (1s)
  COPYTRADER_MIRROR_FOLLOW_CLOSES close slave copies of closed master trades
  COPYTRADER_JOURNAL_TYPE         sqlite, csv or none`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	accounts, ok, err := loadAccounts(cmd)
	if err != nil || !ok {
		return err
	}

	j, err := journal.Open(settings.Journal.Type, settings.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	engine := mirror.NewEngine(newSession(), *accounts,
		mirror.WithPollInterval(settings.Mirror.PollInterval),
		mirror.WithRetryPolicy(mirror.RetryPolicy{Backoff: settings.Mirror.RetryBackoff}),
		mirror.WithFollowCloses(settings.Mirror.FollowCloses),
		mirror.WithJournal(j),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = engine.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logrus.WithField("state", engine.State()).Info("monitoring stopped")
		return nil
	}
	return err
}
