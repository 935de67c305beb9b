// Package mirror watches the master account for new trades and copies each
// one onto the slave account, scaled by a Sizer.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/copytrader/broker"
	"github.com/rustyeddy/copytrader/config"
	"github.com/rustyeddy/copytrader/journal"
	"github.com/rustyeddy/copytrader/ledger"
	"github.com/rustyeddy/copytrader/pkg/id"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const DefaultPollInterval = time.Second

// Session is the terminal session the engine drives. *broker.Session
// satisfies it.
type Session interface {
	Login(ctx context.Context, cred config.Credential) error
	Active() (config.Credential, bool)
	AsAccount(ctx context.Context, cred config.Credential, fn func(ctx context.Context) error) error
	AccountInfo(ctx context.Context) (broker.AccountSnapshot, error)
	Positions(ctx context.Context) ([]broker.Position, error)
	SubmitOrder(ctx context.Context, req broker.MirrorRequest) (int64, error)
	ClosePosition(ctx context.Context, ticket int64) (int64, error)
}

type Engine struct {
	session  Session
	accounts config.Config
	ledger   *ledger.Ledger
	closer   *Closer

	sizer        Sizer
	policy       RetryPolicy
	journal      journal.Journal
	pollInterval time.Duration
	followCloses bool
	sleep        func(ctx context.Context, d time.Duration) error

	state State
	log   *logrus.Entry
}

type Option func(*Engine)

func WithSizer(s Sizer) Option {
	return func(e *Engine) { e.sizer = s }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.pollInterval = d }
}

// WithFollowCloses makes the engine close slave copies of master trades that
// were closed.
func WithFollowCloses(on bool) Option {
	return func(e *Engine) { e.followCloses = on }
}

func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

// WithSleep replaces the wait between polls.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = fn }
}

func NewEngine(s Session, accounts config.Config, opts ...Option) *Engine {
	e := &Engine{
		session:      s,
		accounts:     accounts,
		ledger:       ledger.New(),
		sizer:        BalanceRatio{},
		policy:       DefaultRetryPolicy(),
		journal:      journal.Nop{},
		pollInterval: DefaultPollInterval,
		sleep:        sleepContext,
		state:        WaitingForMasterSession,
		log:          logrus.WithField("component", "mirror"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.closer = NewCloser(s, e.ledger)
	return e
}

func (e *Engine) State() State { return e.state }

func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Start logs into the master account and marks every position already open
// there as known, so only trades opened from now on are mirrored.
func (e *Engine) Start(ctx context.Context) error {
	e.state = WaitingForMasterSession
	if err := e.session.Login(ctx, e.accounts.Master); err != nil {
		return fmt.Errorf("master login: %w", err)
	}

	positions, err := e.session.Positions(ctx)
	if err != nil {
		return fmt.Errorf("initial master positions: %w", err)
	}
	e.ledger.Seed(tickets(positions))
	e.state = Monitoring

	e.log.WithFields(logrus.Fields{
		"master": e.accounts.Master.String(),
		"slave":  e.accounts.Slave.String(),
		"known":  len(positions),
	}).Info("monitoring master account")
	return nil
}

// Run starts the engine and polls until ctx is done or the engine aborts.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	for {
		wait, err := e.Poll(ctx)
		if err != nil {
			return err
		}
		if err := e.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Poll runs one monitoring iteration and returns how long to wait before the
// next one.
func (e *Engine) Poll(ctx context.Context) (time.Duration, error) {
	switch e.state {
	case Aborted:
		return 0, ErrAborted
	case Monitoring:
	default:
		return 0, ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	positions, err := e.session.Positions(ctx)
	if err != nil {
		return e.recover("list master positions", err)
	}
	current := tickets(positions)

	if fresh := e.ledger.Unknown(current); len(fresh) > 0 {
		if err := e.mirrorBatch(ctx, positions, fresh); err != nil {
			if cerr := ctx.Err(); cerr != nil && e.policy.Decide(err) != Abort {
				return 0, cerr
			}
			return e.recover("mirror batch", err)
		}
	}

	if e.followCloses {
		if err := e.followClosed(ctx, current); err != nil {
			return e.recover("follow closes", err)
		}
	}

	e.ledger.MarkKnown(current)
	return e.pollInterval, nil
}

// recover applies the retry policy to a failed step. The known set is left
// alone so the step is retried on the next poll.
func (e *Engine) recover(step string, err error) (time.Duration, error) {
	log := e.log.WithError(err).WithField("step", step)

	switch e.policy.Decide(err) {
	case Abort:
		e.state = Aborted
		log.Error("session state unknown, stopping")
		if errors.Is(err, ErrAborted) {
			return 0, err
		}
		return 0, fmt.Errorf("%s: %w: %w", step, ErrAborted, err)
	case Backoff:
		log.WithField("backoff", e.policy.Backoff).Warn("retrying after backoff")
		return e.policy.Backoff, nil
	default:
		log.Error("step failed")
		return e.pollInterval, nil
	}
}

// mirrorBatch mirrors the fresh tickets using one master balance read for
// the whole batch. An error means the batch was not attempted.
func (e *Engine) mirrorBatch(ctx context.Context, positions []broker.Position, fresh []int64) error {
	master, err := e.session.AccountInfo(ctx)
	if err != nil {
		return err
	}

	batch := id.New()
	log := e.log.WithFields(logrus.Fields{"batch": batch, "trades": len(fresh)})
	log.WithField("master_balance", master.Balance).Info("new master trades")

	index := make(map[int64]broker.Position, len(positions))
	for _, p := range positions {
		index[p.Ticket] = p
	}

	if !master.Balance.IsPositive() {
		log.WithField("master_balance", master.Balance).Warn("master balance not positive, skipping batch")
		for _, t := range fresh {
			e.record(batch, journal.EventSkipped, index[t], 0, decimal.Zero, "master balance not positive")
		}
		return nil
	}

	for _, t := range fresh {
		pos := index[t]
		if !pos.Protected() {
			log.WithFields(logrus.Fields{"ticket": t, "symbol": pos.Symbol}).Info("trade has no stop loss or take profit, not mirrored")
			e.record(batch, journal.EventSkipped, pos, 0, decimal.Zero, "missing stop loss or take profit")
			continue
		}

		if err := e.mirrorTrade(ctx, batch, master, pos); err != nil {
			if e.policy.Decide(err) == Abort {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// mirrorTrade copies one trade inside a scoped switch to the slave account.
// Once the switch starts it runs through the return to the master even if
// ctx is cancelled; the caller checks ctx afterwards.
func (e *Engine) mirrorTrade(ctx context.Context, batch string, master broker.AccountSnapshot, pos broker.Position) error {
	log := e.log.WithFields(logrus.Fields{
		"batch":  batch,
		"ticket": pos.Ticket,
		"symbol": pos.Symbol,
		"side":   pos.Side,
		"volume": pos.Volume,
	})

	var (
		volume decimal.Decimal
		slave  int64
	)
	e.state = SwitchingToSlave
	err := e.session.AsAccount(context.WithoutCancel(ctx), e.accounts.Slave, func(ctx context.Context) error {
		e.state = Mirroring
		defer func() { e.state = SwitchingToMaster }()

		snap, err := e.session.AccountInfo(ctx)
		if err != nil {
			return err
		}
		volume, err = e.sizer.Size(pos.Volume, master.Balance, snap.Balance)
		if err != nil {
			return err
		}
		slave, err = e.session.SubmitOrder(ctx, NewMirrorRequest(pos, volume))
		if err != nil {
			return err
		}
		e.ledger.Record(pos.Ticket, slave)
		return nil
	})

	if broker.KindOf(err) == broker.KindSwitchBack {
		e.state = Aborted
		if slave != 0 {
			e.record(batch, journal.EventMirrored, pos, slave, volume, "")
		}
		log.WithError(err).Error("could not return to master account")
		return fmt.Errorf("ticket %d: %w: %w", pos.Ticket, ErrAborted, err)
	}
	e.state = Monitoring

	if err != nil {
		log.WithError(err).Error("trade not mirrored")
		e.record(batch, journal.EventDropped, pos, 0, volume, err.Error())
		return err
	}

	log.WithFields(logrus.Fields{
		"slave_ticket": slave,
		"slave_volume": volume,
		"result":       "success",
	}).Info("trade mirrored")
	e.record(batch, journal.EventMirrored, pos, slave, volume, "")
	return nil
}

// followClosed closes slave copies of mapped master trades that are no
// longer open. Each copy gets one close attempt.
func (e *Engine) followClosed(ctx context.Context, current []int64) error {
	gone := e.ledger.Orphaned(current)
	if len(gone) == 0 {
		return nil
	}

	batch := id.New()
	e.state = SwitchingToSlave
	err := e.session.AsAccount(context.WithoutCancel(ctx), e.accounts.Slave, func(ctx context.Context) error {
		e.state = Mirroring
		defer func() { e.state = SwitchingToMaster }()

		for _, m := range gone {
			slave, _ := e.ledger.Slave(m)
			pos := broker.Position{Ticket: m}
			order, err := e.closer.CloseMirroredTrade(ctx, e.accounts.Slave, m)
			switch {
			case err == nil:
				e.record(batch, journal.EventClosed, pos, slave, decimal.Zero, fmt.Sprintf("order %d", order))
			case errors.Is(err, ErrNotFound):
				e.log.WithFields(logrus.Fields{"master_ticket": m, "slave_ticket": slave}).Info("slave copy already closed")
			default:
				e.record(batch, journal.EventCloseFailed, pos, slave, decimal.Zero, err.Error())
			}
			e.ledger.Forget(m)
		}
		return nil
	})
	if broker.KindOf(err) == broker.KindSwitchBack {
		e.state = Aborted
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	e.state = Monitoring
	if err != nil {
		e.log.WithError(err).Warn("could not switch to slave to follow closes")
	}
	return nil
}

func (e *Engine) record(batch string, ev journal.Event, pos broker.Position, slave int64, volume decimal.Decimal, reason string) {
	rec := journal.MirrorRecord{
		BatchID:      batch,
		Time:         time.Now(),
		Event:        ev,
		MasterTicket: pos.Ticket,
		SlaveTicket:  slave,
		Symbol:       pos.Symbol,
		MasterVolume: pos.Volume,
		Volume:       volume,
		Reason:       reason,
	}
	if pos.Symbol != "" {
		rec.Side = pos.Side.String()
	}
	if err := e.journal.RecordMirror(rec); err != nil {
		e.log.WithError(err).Warn("journal write failed")
	}
}

func tickets(ps []broker.Position) []int64 {
	out := make([]int64, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Ticket)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
