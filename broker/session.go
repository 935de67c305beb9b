package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/copytrader/config"
	"github.com/sirupsen/logrus"
)

// Session is the only owner of a Terminal's authenticated account. Every
// cross-account sequence goes through Login or AsAccount so the active
// account is always known, or known to be unknown.
type Session struct {
	term        Terminal
	initialized bool
	active      *config.Credential

	deviation int
	magic     int64
	log       *logrus.Entry
}

type SessionOption func(*Session)

// WithDeviation sets the maximum price deviation, in points, for orders.
func WithDeviation(points int) SessionOption {
	return func(s *Session) { s.deviation = points }
}

// WithMagic tags every order with the given expert id.
func WithMagic(magic int64) SessionOption {
	return func(s *Session) { s.magic = magic }
}

func WithLogger(log *logrus.Entry) SessionOption {
	return func(s *Session) { s.log = log }
}

func NewSession(term Terminal, opts ...SessionOption) *Session {
	s := &Session{
		term:      term,
		deviation: DefaultDeviation,
		log:       logrus.WithField("component", "session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Active returns the credential currently authenticated, if any.
func (s *Session) Active() (config.Credential, bool) {
	if s.active == nil {
		return config.Credential{}, false
	}
	return *s.active, true
}

// Login initializes the terminal on first use and authenticates cred. On
// failure the session has no active account.
func (s *Session) Login(ctx context.Context, cred config.Credential) error {
	s.active = nil

	if !s.initialized {
		if err := s.term.Initialize(ctx); err != nil {
			err = s.describe(ctx, err)
			s.log.WithError(err).Error("terminal initialize failed")
			return newError(KindInit, "initialize", cred.Login, err)
		}
		s.initialized = true
	}

	s.log.WithFields(logrus.Fields{"login": cred.Login, "server": cred.Server}).Info("logging into account")
	if err := s.term.Login(ctx, cred.Login, cred.Password, cred.Server); err != nil {
		err = s.describe(ctx, err)
		s.log.WithError(err).WithField("login", cred.Login).Error("login failed")
		return newError(KindAuth, "login", cred.Login, err)
	}

	c := cred
	s.active = &c
	s.log.WithFields(logrus.Fields{"login": cred.Login, "result": "success"}).Info("logged into account")
	return nil
}

// AsAccount runs fn while cred is the active account, then logs back into
// whichever account was active before. If cred cannot be logged into, fn is
// not run, the previous account is logged back into and the login error is
// returned. Whenever the return login fails the result is a KindSwitchBack
// error joined with the error that preceded it.
func (s *Session) AsAccount(ctx context.Context, cred config.Credential, fn func(ctx context.Context) error) error {
	prev, hadPrev := s.Active()

	if err := s.Login(ctx, cred); err != nil {
		if !hadPrev {
			return err
		}
		if rerr := s.Login(ctx, prev); rerr != nil {
			return newError(KindSwitchBack, "switch back", prev.Login, errors.Join(rerr, err))
		}
		return err
	}

	fnErr := fn(ctx)

	if !hadPrev {
		return fnErr
	}
	if err := s.Login(ctx, prev); err != nil {
		return newError(KindSwitchBack, "switch back", prev.Login, errors.Join(err, fnErr))
	}
	return fnErr
}

func (s *Session) requireActive(op string) (int64, error) {
	if s.active == nil {
		return 0, newError(KindUnknown, op, 0, ErrNoSession)
	}
	return s.active.Login, nil
}

// AccountInfo reads the active account's balance.
func (s *Session) AccountInfo(ctx context.Context) (AccountSnapshot, error) {
	login, err := s.requireActive("account info")
	if err != nil {
		return AccountSnapshot{}, err
	}

	info, err := s.term.AccountInfo(ctx)
	if err != nil {
		return AccountSnapshot{}, newError(KindRetrieval, "account info", login, s.describe(ctx, err))
	}
	return AccountSnapshot{Login: login, Balance: info.Balance, Equity: info.Equity}, nil
}

// Positions lists the open positions of the active account.
func (s *Session) Positions(ctx context.Context) ([]Position, error) {
	login, err := s.requireActive("positions")
	if err != nil {
		return nil, err
	}

	ps, err := s.term.PositionsGet(ctx)
	if err != nil {
		return nil, newError(KindRetrieval, "positions", login, s.describe(ctx, err))
	}
	return ps, nil
}

// SubmitOrder places req as a market deal on the active account and returns
// the new order ticket.
func (s *Session) SubmitOrder(ctx context.Context, req MirrorRequest) (int64, error) {
	return s.send(ctx, "submit order", OrderRequest{
		Action:     ActionDeal,
		Symbol:     req.Symbol,
		Volume:     req.Volume,
		Type:       req.Side,
		Price:      req.Price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Comment:    CommentMirrored,
	})
}

// ClosePosition flattens the position with the given ticket on the active
// account. Buys close at the bid, sells at the ask.
func (s *Session) ClosePosition(ctx context.Context, ticket int64) (int64, error) {
	ps, err := s.Positions(ctx)
	if err != nil {
		return 0, err
	}

	var pos *Position
	for i := range ps {
		if ps[i].Ticket == ticket {
			pos = &ps[i]
			break
		}
	}
	if pos == nil {
		return 0, fmt.Errorf("close %d: %w", ticket, ErrPositionNotFound)
	}

	tick, err := s.term.SymbolInfoTick(ctx, pos.Symbol)
	if err != nil {
		return 0, newError(KindRetrieval, "symbol tick", s.active.Login, s.describe(ctx, err))
	}

	side := pos.Side.Opposite()
	price := tick.Bid
	if side == Buy {
		price = tick.Ask
	}

	return s.send(ctx, "close position", OrderRequest{
		Action:   ActionDeal,
		Position: pos.Ticket,
		Symbol:   pos.Symbol,
		Volume:   pos.Volume,
		Type:     side,
		Price:    price,
		Comment:  CommentCloseTrade,
	})
}

func (s *Session) send(ctx context.Context, op string, req OrderRequest) (int64, error) {
	login, err := s.requireActive(op)
	if err != nil {
		return 0, err
	}

	req.Deviation = s.deviation
	req.Magic = s.magic
	req.TypeTime = OrderTimeGTC
	req.TypeFilling = OrderFillingIOC

	res, err := s.term.OrderSend(ctx, req)
	if err != nil {
		return 0, newError(KindOrderRejected, op, login, s.describe(ctx, err))
	}
	if res.Retcode != RetcodeDone {
		return 0, newError(KindOrderRejected, op, login,
			fmt.Errorf("retcode %d: %s", res.Retcode, res.Comment))
	}
	return res.Order, nil
}

// describe appends the terminal's last error to err when it can be read.
func (s *Session) describe(ctx context.Context, err error) error {
	le, lerr := s.term.LastError(ctx)
	if lerr != nil || (le.Code == 0 && le.Message == "") {
		return err
	}
	return fmt.Errorf("%w: last error %s", err, le)
}

