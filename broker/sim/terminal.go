package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/copytrader/broker"
	"github.com/shopspring/decimal"
)

var (
	ErrNotInitialized = errors.New("terminal not initialized")
	ErrInitialize     = errors.New("terminal initialize failed")
	ErrAuthorization  = errors.New("authorization failed")
	ErrNoAccount      = errors.New("no account logged in")
	ErrUnavailable    = errors.New("data unavailable")
	ErrNoPrice        = errors.New("price not found")
)

const (
	RetcodeRejected      = 10006
	RetcodeInvalidVolume = 10014
	RetcodeNoPosition    = 10036
)

type account struct {
	login     int64
	password  string
	server    string
	balance   decimal.Decimal
	positions map[int64]broker.Position
	orders    []broker.OrderRequest
}

// Terminal is an in-memory trading terminal holding several accounts of
// which at most one is logged in, like the real thing. Faults can be
// injected per operation to exercise recovery paths.
type Terminal struct {
	mu          sync.Mutex
	initialized bool
	accounts    map[int64]*account
	active      *account
	ticks       map[string]broker.Tick
	nextTicket  int64
	lastErr     broker.LastError
	logins      []int64

	failInit        int
	failLogin       map[int64]int
	failPositions   map[int64]int
	failAccountInfo map[int64]int
	rejectOrders    map[int64]int
}

func New() *Terminal {
	return &Terminal{
		accounts:        make(map[int64]*account),
		ticks:           make(map[string]broker.Tick),
		nextTicket:      100000,
		failLogin:       make(map[int64]int),
		failPositions:   make(map[int64]int),
		failAccountInfo: make(map[int64]int),
		rejectOrders:    make(map[int64]int),
	}
}

// AddAccount registers an account the terminal can log into.
func (t *Terminal) AddAccount(login int64, password, server string, balance decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accounts[login] = &account{
		login:     login,
		password:  password,
		server:    server,
		balance:   balance,
		positions: make(map[int64]broker.Position),
	}
}

func (t *Terminal) SetBalance(login int64, balance decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.accounts[login]; ok {
		a.balance = balance
	}
}

func (t *Terminal) SetTick(symbol string, bid, ask decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ticks[symbol] = broker.Tick{Symbol: symbol, Bid: bid, Ask: ask, Time: time.Now().UTC()}
}

// Open places a position straight onto an account, as if a trader had opened
// it in the terminal. A zero ticket is assigned the next free one.
func (t *Terminal) Open(login int64, p broker.Position) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.accounts[login]
	if !ok {
		panic(fmt.Sprintf("sim: unknown account %d", login))
	}
	if p.Ticket == 0 {
		p.Ticket = t.ticket()
	}
	if p.PriceCurrent.IsZero() {
		p.PriceCurrent = p.PriceOpen
	}
	a.positions[p.Ticket] = p
	return p.Ticket
}

// Remove drops a position from an account without an order, as a manual or
// stop-out close would.
func (t *Terminal) Remove(login, ticket int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if a, ok := t.accounts[login]; ok {
		delete(a.positions, ticket)
	}
}

// Positions returns the account's open positions in ticket order.
func (t *Terminal) Positions(login int64) []broker.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.accounts[login]
	if !ok {
		return nil
	}
	return sortedPositions(a)
}

// Orders returns every order_send request accepted or rejected for login.
func (t *Terminal) Orders(login int64) []broker.OrderRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.accounts[login]
	if !ok {
		return nil
	}
	return append([]broker.OrderRequest(nil), a.orders...)
}

// Logins returns the logins of every successful authentication, in order.
func (t *Terminal) Logins() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int64(nil), t.logins...)
}

// ActiveLogin returns the logged-in account, or 0.
func (t *Terminal) ActiveLogin() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return 0
	}
	return t.active.login
}

// Fault injection. A count of n fails the next n calls; a negative count
// fails every call until reset with 0.

func (t *Terminal) FailInitialize(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failInit = n
}

func (t *Terminal) FailLogin(login int64, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failLogin[login] = n
}

func (t *Terminal) FailPositions(login int64, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failPositions[login] = n
}

func (t *Terminal) FailAccountInfo(login int64, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failAccountInfo[login] = n
}

func (t *Terminal) RejectOrders(login int64, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rejectOrders[login] = n
}

func (t *Terminal) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if trip(&t.failInit) {
		t.lastErr = broker.LastError{Code: -10003, Message: "IPC initialize failed"}
		return ErrInitialize
	}
	t.initialized = true
	t.lastErr = broker.LastError{Code: 1, Message: "Success"}
	return nil
}

func (t *Terminal) Login(ctx context.Context, login int64, password, server string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		t.lastErr = broker.LastError{Code: -10004, Message: "No IPC connection"}
		return ErrNotInitialized
	}

	// whatever happens next, the previous account is no longer logged in
	t.active = nil

	a, ok := t.accounts[login]
	if !ok || a.password != password || a.server != server || tripMap(t.failLogin, login) {
		t.lastErr = broker.LastError{Code: -6, Message: "Terminal: Authorization failed"}
		return fmt.Errorf("login %d: %w", login, ErrAuthorization)
	}

	t.active = a
	t.logins = append(t.logins, login)
	t.lastErr = broker.LastError{Code: 1, Message: "Success"}
	return nil
}

func (t *Terminal) LastError(ctx context.Context) (broker.LastError, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr, nil
}

func (t *Terminal) AccountInfo(ctx context.Context) (broker.AccountInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return broker.AccountInfo{}, ErrNoAccount
	}
	if tripMap(t.failAccountInfo, t.active.login) {
		t.lastErr = broker.LastError{Code: -1, Message: "Terminal: Call failed"}
		return broker.AccountInfo{}, ErrUnavailable
	}
	return broker.AccountInfo{
		Login:    t.active.login,
		Server:   t.active.server,
		Currency: "USD",
		Balance:  t.active.balance,
		Equity:   t.active.balance,
	}, nil
}

func (t *Terminal) PositionsGet(ctx context.Context) ([]broker.Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return nil, ErrNoAccount
	}
	if tripMap(t.failPositions, t.active.login) {
		t.lastErr = broker.LastError{Code: -1, Message: "Terminal: Call failed"}
		return nil, ErrUnavailable
	}
	return sortedPositions(t.active), nil
}

func (t *Terminal) SymbolInfoTick(ctx context.Context, symbol string) (broker.Tick, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tick, ok := t.ticks[symbol]
	if !ok {
		t.lastErr = broker.LastError{Code: -4, Message: "Terminal: Not found"}
		return broker.Tick{}, fmt.Errorf("%s: %w", symbol, ErrNoPrice)
	}
	return tick, nil
}

func (t *Terminal) OrderSend(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return broker.OrderResult{}, ErrNoAccount
	}
	a := t.active
	a.orders = append(a.orders, req)

	if tripMap(t.rejectOrders, a.login) {
		return broker.OrderResult{Retcode: RetcodeRejected, Comment: "Request rejected"}, nil
	}
	if !req.Volume.IsPositive() {
		return broker.OrderResult{Retcode: RetcodeInvalidVolume, Comment: "Invalid volume"}, nil
	}

	// closing order
	if req.Position != 0 {
		if _, ok := a.positions[req.Position]; !ok {
			return broker.OrderResult{Retcode: RetcodeNoPosition, Comment: "Position doesn't exist"}, nil
		}
		delete(a.positions, req.Position)
		return broker.OrderResult{Retcode: broker.RetcodeDone, Order: t.ticket(), Comment: "Request executed"}, nil
	}

	price := req.Price
	if tick, ok := t.ticks[req.Symbol]; ok && price.IsZero() {
		price = tick.Ask
		if req.Type == broker.Sell {
			price = tick.Bid
		}
	}

	ticket := t.ticket()
	a.positions[ticket] = broker.Position{
		Ticket:       ticket,
		Symbol:       req.Symbol,
		Side:         req.Type,
		Volume:       req.Volume,
		PriceOpen:    price,
		PriceCurrent: price,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
	}
	return broker.OrderResult{Retcode: broker.RetcodeDone, Order: ticket, Comment: "Request executed"}, nil
}

func (t *Terminal) ticket() int64 {
	t.nextTicket++
	return t.nextTicket
}

func sortedPositions(a *account) []broker.Position {
	out := make([]broker.Position, 0, len(a.positions))
	for _, p := range a.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out
}

func trip(n *int) bool {
	if *n == 0 {
		return false
	}
	if *n > 0 {
		*n--
	}
	return true
}

func tripMap(m map[int64]int, login int64) bool {
	n := m[login]
	hit := trip(&n)
	m[login] = n
	return hit
}

var _ broker.Terminal = (*Terminal)(nil)
