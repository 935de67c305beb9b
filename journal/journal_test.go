package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords(base time.Time) []MirrorRecord {
	return []MirrorRecord{
		{
			BatchID: "B1", Time: base, Event: EventMirrored,
			MasterTicket: 11, SlaveTicket: 901, Symbol: "EURUSD", Side: "buy",
			MasterVolume: decimal.RequireFromString("1.00"), Volume: decimal.RequireFromString("0.25"),
		},
		{
			BatchID: "B1", Time: base.Add(time.Second), Event: EventSkipped,
			MasterTicket: 12, Symbol: "GBPUSD", Side: "sell",
			MasterVolume: decimal.RequireFromString("0.50"), Reason: "missing stop loss or take profit",
		},
		{
			BatchID: "B2", Time: base.Add(time.Hour), Event: EventClosed,
			MasterTicket: 11, SlaveTicket: 901, Symbol: "EURUSD", Side: "buy",
			Volume: decimal.RequireFromString("0.25"),
		},
	}
}

func TestStores(t *testing.T) {
	t.Parallel()

	stores := map[string]func(dir string) (Store, error){
		"sqlite": func(dir string) (Store, error) { return Open("sqlite", filepath.Join(dir, "j.sqlite")) },
		"csv":    func(dir string) (Store, error) { return Open("csv", filepath.Join(dir, "j.csv")) },
	}

	for name, open := range stores {
		open := open
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			j, err := open(t.TempDir())
			require.NoError(t, err)
			t.Cleanup(func() { _ = j.Close() })

			base := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
			for _, r := range sampleRecords(base) {
				require.NoError(t, j.RecordMirror(r))
			}

			recs, err := j.ListBetween(base, base.Add(time.Minute))
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, EventMirrored, recs[0].Event)
			assert.NotEmpty(t, recs[0].ID, "ids are assigned on write")
			assert.True(t, recs[0].Time.Equal(base))
			assert.True(t, recs[0].Volume.Equal(decimal.RequireFromString("0.25")))
			assert.Equal(t, "missing stop loss or take profit", recs[1].Reason)

			recs, err = j.ListByMaster(11)
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, EventMirrored, recs[0].Event)
			assert.Equal(t, EventClosed, recs[1].Event)
			assert.Equal(t, int64(901), recs[1].SlaveTicket)

			recs, err = j.ListByMaster(99)
			require.NoError(t, err)
			assert.Empty(t, recs)
		})
	}
}

func TestCSVAppendsAcrossOpens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "j.csv")
	base := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	recs := sampleRecords(base)

	j, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordMirror(recs[0]))
	require.NoError(t, j.Close())

	j, err = NewCSV(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	require.NoError(t, j.RecordMirror(recs[1]))

	got, err := j.ListBetween(base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, got, 2, "a reopened file keeps its single header")
}

func TestOpen(t *testing.T) {
	t.Parallel()

	j, err := Open("none", "")
	require.NoError(t, err)
	assert.NoError(t, j.RecordMirror(MirrorRecord{}))
	recs, err := j.ListByMaster(1)
	assert.NoError(t, err)
	assert.Empty(t, recs)

	_, err = Open("parquet", "x")
	assert.Error(t, err)
}
