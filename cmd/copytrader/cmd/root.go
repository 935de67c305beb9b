package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/rustyeddy/copytrader/broker"
	"github.com/rustyeddy/copytrader/broker/bridge"
	"github.com/rustyeddy/copytrader/config"
	"github.com/rustyeddy/copytrader/logging"
	"github.com/spf13/cobra"
)

// ErrNoArgument is returned when copytrader is run without a known command.
var ErrNoArgument = errors.New("no valid argument provided")

const noArgumentMessage = "No valid argument provided."

var rootCmd = &cobra.Command{
	Use:   "copytrader",
	Short: "Copy trades from a master trading account onto a slave account",
	Long: `copytrader watches a master account on a trading terminal and copies every
new trade that carries both a stop loss and a take profit onto a slave account,
scaling the volume by the ratio of the two account balances.

Only one account can be logged into the terminal at a time, so every copy is a
switch to the slave account and back.

Start monitoring with:
  copytrader monitor`,
	Args:              cobra.ArbitraryArgs,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.ErrOrStderr(), noArgumentMessage)
		return ErrNoArgument
	},
}

var (
	accountsPath string
	envFile      string

	settings  *config.Settings
	logCloser io.Closer
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountsPath, "accounts", "a", config.DefaultPath, "path to the account credential file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional file of COPYTRADER_* settings")
}

func setup(cmd *cobra.Command, args []string) error {
	s, err := config.LoadSettings(envFile)
	if err != nil {
		return err
	}
	settings = s

	logCloser, err = logging.Init(logging.Config{
		Level:      s.Log.Level,
		File:       s.Log.File,
		MaxSize:    s.Log.MaxSizeMB,
		MaxBackups: s.Log.MaxBackups,
	})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) {
	if logCloser != nil {
		_ = logCloser.Close()
	}
}

// newSession connects to the terminal bridge named in the settings.
func newSession() *broker.Session {
	client := bridge.NewClient(settings.Terminal.URL, settings.Terminal.Timeout)
	return broker.NewSession(client,
		broker.WithDeviation(settings.Mirror.Deviation),
		broker.WithMagic(settings.Mirror.Magic),
	)
}

// loadAccounts reads the credential file, writing a template first if there
// is none. ok is false when the template was just written.
func loadAccounts(cmd *cobra.Command) (cfg *config.Config, ok bool, err error) {
	if err := config.EnsureFile(accountsPath); err != nil {
		if errors.Is(err, config.ErrCreated) {
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s. Fill in account_1 (master) and account_2 (slave), then run again.\n", accountsPath)
			return nil, false, nil
		}
		return nil, false, err
	}

	cfg, err = config.LoadFromFile(accountsPath)
	if err != nil {
		return nil, false, fmt.Errorf("load accounts: %w", err)
	}
	return cfg, true, nil
}
