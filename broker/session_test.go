package broker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rustyeddy/copytrader/broker"
	"github.com/rustyeddy/copytrader/broker/sim"
	"github.com/rustyeddy/copytrader/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	d = decimal.RequireFromString

	master = config.Credential{Login: 1001, Password: "m-pass", Server: "Demo-1"}
	slave  = config.Credential{Login: 2002, Password: "s-pass", Server: "Demo-2"}
)

func newSession(t *testing.T) (*broker.Session, *sim.Terminal) {
	t.Helper()
	term := sim.New()
	term.AddAccount(master.Login, master.Password, master.Server, d("10000"))
	term.AddAccount(slave.Login, slave.Password, slave.Server, d("2500"))
	term.SetTick("EURUSD", d("1.0850"), d("1.0852"))
	return broker.NewSession(term), term
}

func TestLoginSetsActive(t *testing.T) {
	s, term := newSession(t)
	ctx := context.Background()

	_, ok := s.Active()
	assert.False(t, ok)

	require.NoError(t, s.Login(ctx, master))
	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, master.Login, active.Login)
	assert.Equal(t, master.Login, term.ActiveLogin())
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("initialize", func(t *testing.T) {
		s, term := newSession(t)
		term.FailInitialize(1)

		err := s.Login(ctx, master)
		require.Error(t, err)
		assert.Equal(t, broker.KindInit, broker.KindOf(err))
		assert.Contains(t, err.Error(), "IPC initialize failed")

		// initialization is retried on the next login
		require.NoError(t, s.Login(ctx, master))
	})

	t.Run("credentials", func(t *testing.T) {
		s, _ := newSession(t)
		require.NoError(t, s.Login(ctx, master))

		bad := slave
		bad.Password = "wrong"
		err := s.Login(ctx, bad)
		require.Error(t, err)
		assert.Equal(t, broker.KindAuth, broker.KindOf(err))
		assert.Contains(t, err.Error(), "Authorization failed")

		_, ok := s.Active()
		assert.False(t, ok, "a failed login leaves no known active account")
	})
}

func TestOperationsRequireSession(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	_, err := s.Positions(ctx)
	assert.True(t, errors.Is(err, broker.ErrNoSession))

	_, err = s.AccountInfo(ctx)
	assert.True(t, errors.Is(err, broker.ErrNoSession))

	_, err = s.SubmitOrder(ctx, broker.MirrorRequest{Symbol: "EURUSD", Volume: d("0.1")})
	assert.True(t, errors.Is(err, broker.ErrNoSession))
}

func TestRetrievalFailureKind(t *testing.T) {
	s, term := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, master))

	term.FailPositions(master.Login, 1)
	_, err := s.Positions(ctx)
	assert.Equal(t, broker.KindRetrieval, broker.KindOf(err))

	term.FailAccountInfo(master.Login, 1)
	_, err = s.AccountInfo(ctx)
	assert.Equal(t, broker.KindRetrieval, broker.KindOf(err))

	snap, err := s.AccountInfo(ctx)
	require.NoError(t, err)
	assert.True(t, snap.Balance.Equal(d("10000")))
	assert.Equal(t, master.Login, snap.Login)
}

func TestSubmitOrder(t *testing.T) {
	term := sim.New()
	term.AddAccount(slave.Login, slave.Password, slave.Server, d("2500"))
	s := broker.NewSession(term, broker.WithDeviation(30), broker.WithMagic(77))
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, slave))

	ticket, err := s.SubmitOrder(ctx, broker.MirrorRequest{
		Symbol:     "EURUSD",
		Volume:     d("0.25"),
		Side:       broker.Sell,
		Price:      d("1.0850"),
		StopLoss:   d("1.0900"),
		TakeProfit: d("1.0750"),
	})
	require.NoError(t, err)
	assert.NotZero(t, ticket)

	orders := term.Orders(slave.Login)
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, broker.ActionDeal, o.Action)
	assert.Equal(t, broker.Sell, o.Type)
	assert.Equal(t, 30, o.Deviation)
	assert.Equal(t, int64(77), o.Magic)
	assert.Equal(t, broker.CommentMirrored, o.Comment)
	assert.Equal(t, broker.OrderTimeGTC, o.TypeTime)
	assert.Equal(t, broker.OrderFillingIOC, o.TypeFilling)

	ps := term.Positions(slave.Login)
	require.Len(t, ps, 1)
	assert.Equal(t, ticket, ps[0].Ticket)
}

func TestSubmitOrderRejected(t *testing.T) {
	s, term := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, slave))

	term.RejectOrders(slave.Login, 1)
	_, err := s.SubmitOrder(ctx, broker.MirrorRequest{Symbol: "EURUSD", Volume: d("0.1")})
	require.Error(t, err)
	assert.Equal(t, broker.KindOrderRejected, broker.KindOf(err))
	assert.Contains(t, err.Error(), "Request rejected")

	_, err = s.SubmitOrder(ctx, broker.MirrorRequest{Symbol: "EURUSD", Volume: d("0")})
	assert.Equal(t, broker.KindOrderRejected, broker.KindOf(err))
	assert.Contains(t, err.Error(), "Invalid volume")
}

func TestClosePosition(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		side      broker.Side
		wantSide  broker.Side
		wantPrice string
	}{
		{"close buy at bid", broker.Buy, broker.Sell, "1.0850"},
		{"close sell at ask", broker.Sell, broker.Buy, "1.0852"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, term := newSession(t)
			ticket := term.Open(slave.Login, broker.Position{
				Symbol: "EURUSD", Side: tt.side, Volume: d("0.30"), PriceOpen: d("1.0800"),
			})
			require.NoError(t, s.Login(ctx, slave))

			_, err := s.ClosePosition(ctx, ticket)
			require.NoError(t, err)
			assert.Empty(t, term.Positions(slave.Login))

			orders := term.Orders(slave.Login)
			require.Len(t, orders, 1)
			assert.Equal(t, ticket, orders[0].Position)
			assert.Equal(t, tt.wantSide, orders[0].Type)
			assert.True(t, orders[0].Price.Equal(d(tt.wantPrice)))
			assert.True(t, orders[0].Volume.Equal(d("0.30")))
			assert.Equal(t, broker.CommentCloseTrade, orders[0].Comment)
		})
	}

	t.Run("unknown ticket", func(t *testing.T) {
		s, _ := newSession(t)
		require.NoError(t, s.Login(ctx, slave))
		_, err := s.ClosePosition(ctx, 999)
		assert.True(t, errors.Is(err, broker.ErrPositionNotFound))
	})
}

func TestAsAccountRestoresPrevious(t *testing.T) {
	s, term := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, master))

	var inside int64
	err := s.AsAccount(ctx, slave, func(ctx context.Context) error {
		a, _ := s.Active()
		inside = a.Login
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, slave.Login, inside)

	active, _ := s.Active()
	assert.Equal(t, master.Login, active.Login)
	assert.Equal(t, []int64{master.Login, slave.Login, master.Login}, term.Logins())
}

func TestAsAccountSwitchFailure(t *testing.T) {
	s, term := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, master))

	term.FailLogin(slave.Login, 1)
	called := false
	err := s.AsAccount(ctx, slave, func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, broker.KindAuth, broker.KindOf(err))

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, master.Login, active.Login)
	assert.Equal(t, []int64{master.Login, master.Login}, term.Logins())

	// neither account can be reached
	term.FailLogin(slave.Login, 1)
	term.FailLogin(master.Login, 1)
	err = s.AsAccount(ctx, slave, func(ctx context.Context) error { return nil })
	assert.Equal(t, broker.KindSwitchBack, broker.KindOf(err))
	assert.True(t, broker.IsKind(err, broker.KindAuth))
}

func TestAsAccountSwitchBackFailure(t *testing.T) {
	s, term := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, master))

	term.FailLogin(master.Login, 1)
	fnErr := errors.New("order failed")
	err := s.AsAccount(ctx, slave, func(ctx context.Context) error {
		return fnErr
	})
	require.Error(t, err)
	assert.Equal(t, broker.KindSwitchBack, broker.KindOf(err))
	assert.True(t, errors.Is(err, fnErr))

	_, ok := s.Active()
	assert.False(t, ok)
}
