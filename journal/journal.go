// journal/journal.go
package journal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event names what the mirror engine decided about a master trade.
type Event string

const (
	EventMirrored    Event = "mirrored"
	EventSkipped     Event = "skipped"
	EventDropped     Event = "dropped"
	EventClosed      Event = "closed"
	EventCloseFailed Event = "close_failed"
)

// MirrorRecord is one audit line. Records are written by the engine and never
// read back by it.
type MirrorRecord struct {
	ID           string
	BatchID      string
	Time         time.Time
	Event        Event
	MasterTicket int64
	SlaveTicket  int64
	Symbol       string
	Side         string
	MasterVolume decimal.Decimal
	Volume       decimal.Decimal
	Reason       string
}

type Journal interface {
	RecordMirror(MirrorRecord) error
	Close() error
}

// Reader queries a journal after the fact.
type Reader interface {
	ListBetween(start, end time.Time) ([]MirrorRecord, error)
	ListByMaster(ticket int64) ([]MirrorRecord, error)
}

// Store is a journal that can also be queried.
type Store interface {
	Journal
	Reader
}

// Open returns the journal named by kind: "sqlite", "csv" or "none".
func Open(kind, path string) (Store, error) {
	switch kind {
	case "sqlite":
		return NewSQLite(path)
	case "csv":
		return NewCSV(path)
	case "none", "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", kind)
	}
}

// Nop discards every record.
type Nop struct{}

func (Nop) RecordMirror(MirrorRecord) error { return nil }
func (Nop) ListBetween(start, end time.Time) ([]MirrorRecord, error) { return nil, nil }
func (Nop) ListByMaster(ticket int64) ([]MirrorRecord, error) { return nil, nil }
func (Nop) Close() error { return nil }
