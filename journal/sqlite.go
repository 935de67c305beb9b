package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/copytrader/pkg/id"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordMirror(r MirrorRecord) error {
	r = stamp(r)
	_, err := j.db.Exec(`
		INSERT INTO mirrors
		(id, batch_id, time, event, master_ticket, slave_ticket, symbol, side, master_volume, volume, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.BatchID, r.Time, string(r.Event), r.MasterTicket, r.SlaveTicket,
		r.Symbol, r.Side, r.MasterVolume, r.Volume, r.Reason,
	)
	return err
}

const selectMirrors = `
	SELECT id, batch_id, time, event, master_ticket, slave_ticket, symbol, side, master_volume, volume, reason
	FROM mirrors`

// ListBetween returns records whose time is within [start, end).
func (j *SQLite) ListBetween(start, end time.Time) ([]MirrorRecord, error) {
	return j.query(selectMirrors+`
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, id ASC`, start.UTC(), end.UTC())
}

// ListByMaster returns every record about one master ticket, oldest first.
func (j *SQLite) ListByMaster(ticket int64) ([]MirrorRecord, error) {
	return j.query(selectMirrors+`
		WHERE master_ticket = ?
		ORDER BY time ASC, id ASC`, ticket)
}

func (j *SQLite) query(q string, args ...any) ([]MirrorRecord, error) {
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MirrorRecord
	for rows.Next() {
		var (
			rec   MirrorRecord
			event string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.BatchID,
			&rec.Time,
			&event,
			&rec.MasterTicket,
			&rec.SlaveTicket,
			&rec.Symbol,
			&rec.Side,
			&rec.MasterVolume,
			&rec.Volume,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		rec.Event = Event(event)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// stamp fills in the id and time of a record that has none.
func stamp(r MirrorRecord) MirrorRecord {
	if r.ID == "" {
		r.ID = id.New()
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	r.Time = r.Time.UTC()
	return r
}
