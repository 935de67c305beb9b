package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/copytrader/broker"
	"github.com/rustyeddy/copytrader/config"
	"github.com/rustyeddy/copytrader/ledger"
	"github.com/sirupsen/logrus"
)

// Closer flattens the slave copy of a master trade.
type Closer struct {
	session Session
	ledger  *ledger.Ledger
	log     *logrus.Entry
}

func NewCloser(s Session, l *ledger.Ledger) *Closer {
	if l == nil {
		l = ledger.New()
	}
	return &Closer{
		session: s,
		ledger:  l,
		log:     logrus.WithField("component", "closer"),
	}
}

// CloseMirroredTrade closes the slave position mirroring masterTicket and
// returns the closing order ticket. account must be the session's active
// account or nothing is sent. A master ticket the ledger has no mapping for
// is taken to be the slave ticket itself.
func (c *Closer) CloseMirroredTrade(ctx context.Context, account config.Credential, masterTicket int64) (int64, error) {
	active, ok := c.session.Active()
	if !ok {
		return 0, fmt.Errorf("close %d: no account active, want %d: %w", masterTicket, account.Login, ErrWrongAccount)
	}
	if active.Login != account.Login {
		return 0, fmt.Errorf("close %d: account %d active, want %d: %w", masterTicket, active.Login, account.Login, ErrWrongAccount)
	}

	slaveTicket := masterTicket
	if s, ok := c.ledger.Slave(masterTicket); ok {
		slaveTicket = s
	}

	order, err := c.session.ClosePosition(ctx, slaveTicket)
	if errors.Is(err, broker.ErrPositionNotFound) {
		return 0, fmt.Errorf("close %d: slave ticket %d: %w", masterTicket, slaveTicket, ErrNotFound)
	}
	if err != nil {
		c.log.WithError(err).WithField("ticket", slaveTicket).Error("close failed")
		return 0, err
	}

	c.log.WithFields(logrus.Fields{
		"master_ticket": masterTicket,
		"slave_ticket":  slaveTicket,
		"order":         order,
		"result":        "success",
	}).Info("closed mirrored trade")
	return order, nil
}
