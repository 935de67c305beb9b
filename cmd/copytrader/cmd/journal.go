package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rustyeddy/copytrader/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the mirror journal",
	Long: `Show what the monitor decided about each master trade: mirrored, skipped,
dropped or closed.

The journal is selected by COPYTRADER_JOURNAL_TYPE and COPYTRADER_JOURNAL_PATH.

Subcommands:
  list   - Records of one day (today by default)
  ticket - Every record about one master ticket

Examples:
  copytrader journal list
  copytrader journal list --day 2025-03-04
  copytrader journal ticket 50123456`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the records of one day",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalTicketCmd = &cobra.Command{
	Use:   "ticket <master-ticket>",
	Short: "List every record about one master ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTicket,
}

var journalDay string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalTicketCmd)

	journalListCmd.Flags().StringVar(&journalDay, "day", "", "day to list, YYYY-MM-DD (default today)")
}

func openJournal() (journal.Store, error) {
	if settings.Journal.Type == "none" {
		return nil, fmt.Errorf("journal disabled (COPYTRADER_JOURNAL_TYPE=none)")
	}
	j, err := journal.Open(settings.Journal.Type, settings.Journal.Path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	loc := time.Local
	day := journalDay
	if day == "" {
		day = time.Now().In(loc).Format("2006-01-02")
	}
	start, end, err := dayBounds(loc, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListBetween(start, end)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}
	renderRecords(cmd.OutOrStdout(), recs)
	return nil
}

func runJournalTicket(cmd *cobra.Command, args []string) error {
	ticket, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("ticket %q: %w", args[0], err)
	}

	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListByMaster(ticket)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}
	renderRecords(cmd.OutOrStdout(), recs)
	return nil
}

func renderRecords(w io.Writer, recs []journal.MirrorRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "no records")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Event", "Master", "Slave", "Symbol", "Side", "Volume", "Copied", "Reason"})
	table.SetAutoWrapText(false)
	for _, r := range recs {
		slave := ""
		if r.SlaveTicket != 0 {
			slave = strconv.FormatInt(r.SlaveTicket, 10)
		}
		table.Append([]string{
			r.Time.Local().Format("2006-01-02 15:04:05"),
			string(r.Event),
			strconv.FormatInt(r.MasterTicket, 10),
			slave,
			r.Symbol,
			r.Side,
			r.MasterVolume.StringFixed(2),
			r.Volume.StringFixed(2),
			r.Reason,
		})
	}
	table.Render()
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
