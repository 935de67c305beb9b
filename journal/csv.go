package journal

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// csvRow is the on-disk layout of a MirrorRecord.
type csvRow struct {
	ID           string `csv:"id"`
	BatchID      string `csv:"batch_id"`
	Time         string `csv:"time"`
	Event        string `csv:"event"`
	MasterTicket int64  `csv:"master_ticket"`
	SlaveTicket  int64  `csv:"slave_ticket"`
	Symbol       string `csv:"symbol"`
	Side         string `csv:"side"`
	MasterVolume string `csv:"master_volume"`
	Volume       string `csv:"volume"`
	Reason       string `csv:"reason"`
}

// CSV appends records to a single file. Reads scan the whole file.
type CSV struct {
	path      string
	f         *os.File
	hasHeader bool
}

func NewCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &CSV{path: path, f: f, hasHeader: st.Size() > 0}, nil
}

func (j *CSV) RecordMirror(r MirrorRecord) error {
	r = stamp(r)
	rows := []*csvRow{{
		ID:           r.ID,
		BatchID:      r.BatchID,
		Time:         r.Time.Format(time.RFC3339Nano),
		Event:        string(r.Event),
		MasterTicket: r.MasterTicket,
		SlaveTicket:  r.SlaveTicket,
		Symbol:       r.Symbol,
		Side:         r.Side,
		MasterVolume: r.MasterVolume.String(),
		Volume:       r.Volume.String(),
		Reason:       r.Reason,
	}}

	if !j.hasHeader {
		if err := gocsv.Marshal(&rows, j.f); err != nil {
			return err
		}
		j.hasHeader = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(&rows, j.f)
}

func (j *CSV) ListBetween(start, end time.Time) ([]MirrorRecord, error) {
	return j.filter(func(r MirrorRecord) bool {
		return !r.Time.Before(start) && r.Time.Before(end)
	})
}

func (j *CSV) ListByMaster(ticket int64) ([]MirrorRecord, error) {
	return j.filter(func(r MirrorRecord) bool { return r.MasterTicket == ticket })
}

func (j *CSV) filter(keep func(MirrorRecord) bool) ([]MirrorRecord, error) {
	f, err := os.Open(j.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if st, err := f.Stat(); err != nil {
		return nil, err
	} else if st.Size() == 0 {
		return nil, nil
	}

	var rows []*csvRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read %s: %w", j.path, err)
	}

	var out []MirrorRecord
	for i, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", j.path, i+2, err)
		}
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (row *csvRow) record() (MirrorRecord, error) {
	rec := MirrorRecord{
		ID:           row.ID,
		BatchID:      row.BatchID,
		Event:        Event(row.Event),
		MasterTicket: row.MasterTicket,
		SlaveTicket:  row.SlaveTicket,
		Symbol:       row.Symbol,
		Side:         row.Side,
		Reason:       row.Reason,
	}

	var err error
	if rec.Time, err = time.Parse(time.RFC3339Nano, row.Time); err != nil {
		return rec, err
	}
	if rec.MasterVolume, err = decimal.NewFromString(row.MasterVolume); err != nil {
		return rec, err
	}
	if rec.Volume, err = decimal.NewFromString(row.Volume); err != nil {
		return rec, err
	}
	return rec, nil
}

func (j *CSV) Close() error {
	return j.f.Close()
}
