package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rustyeddy/copytrader/broker"
	"github.com/rustyeddy/copytrader/broker/sim"
	"github.com/rustyeddy/copytrader/config"
	"github.com/rustyeddy/copytrader/journal"
	"github.com/rustyeddy/copytrader/mirror"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the monitor against a simulated terminal",
	Long: `Run the mirror engine against an in-memory terminal holding a master
account with a 10000 balance and a slave account with 2500.

Between polls the demo opens and closes master trades:
  1. A protected EURUSD buy of 1.00 lots, copied at 0.25
  2. An unprotected GBPUSD sell, never copied
  3. A protected XAUUSD sell of 0.30 lots, copied at 0.08
  4. The EURUSD buy is closed on the master, and its copy on the slave

A position open before the demo starts is never copied.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

var errDemoDone = errors.New("demo script finished")

type demoJournal struct {
	records []journal.MirrorRecord
}

func (d *demoJournal) RecordMirror(r journal.MirrorRecord) error {
	d.records = append(d.records, r)
	return nil
}

func (d *demoJournal) Close() error { return nil }

func runDemo(cmd *cobra.Command, args []string) error {
	dec := decimal.RequireFromString
	master := config.Credential{Login: 10001, Password: "master", Server: "Sim-Demo"}
	slave := config.Credential{Login: 20002, Password: "slave", Server: "Sim-Demo"}

	term := sim.New()
	term.AddAccount(master.Login, master.Password, master.Server, dec("10000"))
	term.AddAccount(slave.Login, slave.Password, slave.Server, dec("2500"))
	term.SetTick("EURUSD", dec("1.08500"), dec("1.08520"))
	term.SetTick("GBPUSD", dec("1.27010"), dec("1.27030"))
	term.SetTick("XAUUSD", dec("2318.40"), dec("2318.90"))

	open := func(symbol string, side broker.Side, volume, price, sl, tp string) int64 {
		return term.Open(master.Login, broker.Position{
			Symbol:     symbol,
			Side:       side,
			Volume:     dec(volume),
			PriceOpen:  dec(price),
			StopLoss:   dec(sl),
			TakeProfit: dec(tp),
		})
	}

	open("EURUSD", broker.Sell, "2.00", "1.08600", "1.09000", "1.08000")

	var eurusd int64
	script := []func(){
		func() { eurusd = open("EURUSD", broker.Buy, "1.00", "1.08520", "1.08000", "1.09500") },
		func() { open("GBPUSD", broker.Sell, "0.50", "1.27010", "0", "0") },
		func() { open("XAUUSD", broker.Sell, "0.30", "2318.40", "2330.00", "2290.00") },
		func() { term.Remove(master.Login, eurusd) },
	}

	step := 0
	j := &demoJournal{}
	engine := mirror.NewEngine(broker.NewSession(term), config.Config{Master: master, Slave: slave},
		mirror.WithFollowCloses(true),
		mirror.WithJournal(j),
		mirror.WithSleep(func(ctx context.Context, d time.Duration) error {
			if step == len(script) {
				return errDemoDone
			}
			script[step]()
			step++
			return nil
		}),
	)

	if err := engine.Run(context.Background()); !errors.Is(err, errDemoDone) {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nDecisions:")
	renderRecords(out, j.records)

	fmt.Fprintf(out, "\nSlave %s open positions:\n", slave)
	renderPositions(out, term.Positions(slave.Login))
	return nil
}

func renderPositions(w io.Writer, ps []broker.Position) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Ticket", "Symbol", "Side", "Volume", "Price", "SL", "TP"})
	for _, p := range ps {
		table.Append([]string{
			strconv.FormatInt(p.Ticket, 10),
			p.Symbol,
			p.Side.String(),
			p.Volume.StringFixed(2),
			p.PriceOpen.String(),
			p.StopLoss.String(),
			p.TakeProfit.String(),
		})
	}
	table.Render()
}
