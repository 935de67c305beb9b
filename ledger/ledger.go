// Package ledger keeps the in-memory bookkeeping of the mirror engine: which
// master tickets have already been seen and which slave ticket each mirrored
// master ticket produced. Nothing here is persisted.
package ledger

import "sort"

type Ledger struct {
	known  map[int64]struct{}
	mirror map[int64]int64
}

func New() *Ledger {
	return &Ledger{
		known:  make(map[int64]struct{}),
		mirror: make(map[int64]int64),
	}
}

// Seed marks tickets as known without mirroring them. Used at start-up so
// positions already open on the master are never copied.
func (l *Ledger) Seed(tickets []int64) {
	l.MarkKnown(tickets)
}

// Unknown returns the tickets not seen before, in ascending order.
func (l *Ledger) Unknown(tickets []int64) []int64 {
	var out []int64
	for _, t := range tickets {
		if _, ok := l.known[t]; !ok {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarkKnown adds tickets to the known set. The set only grows.
func (l *Ledger) MarkKnown(tickets []int64) {
	for _, t := range tickets {
		l.known[t] = struct{}{}
	}
}

func (l *Ledger) Known(ticket int64) bool {
	_, ok := l.known[ticket]
	return ok
}

func (l *Ledger) KnownCount() int {
	return len(l.known)
}

// Record maps a master ticket to the slave ticket that mirrors it.
func (l *Ledger) Record(master, slave int64) {
	l.mirror[master] = slave
}

// Slave returns the slave ticket mirroring master.
func (l *Ledger) Slave(master int64) (int64, bool) {
	s, ok := l.mirror[master]
	return s, ok
}

// Forget drops the mapping for master. The ticket stays known.
func (l *Ledger) Forget(master int64) {
	delete(l.mirror, master)
}

// Mirrored returns a copy of the master -> slave mapping.
func (l *Ledger) Mirrored() map[int64]int64 {
	out := make(map[int64]int64, len(l.mirror))
	for m, s := range l.mirror {
		out[m] = s
	}
	return out
}

// Orphaned returns mapped master tickets that are absent from open, in
// ascending order: the master position closed but its mirror is still mapped.
func (l *Ledger) Orphaned(open []int64) []int64 {
	live := make(map[int64]struct{}, len(open))
	for _, t := range open {
		live[t] = struct{}{}
	}
	var out []int64
	for m := range l.mirror {
		if _, ok := live[m]; !ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
