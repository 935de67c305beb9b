package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Terminal is the trading terminal API. A terminal holds at most one
// authenticated account; Login replaces whatever account was active.
type Terminal interface {
	Initialize(ctx context.Context) error
	Login(ctx context.Context, login int64, password, server string) error
	LastError(ctx context.Context) (LastError, error)
	AccountInfo(ctx context.Context) (AccountInfo, error)
	PositionsGet(ctx context.Context) ([]Position, error)
	SymbolInfoTick(ctx context.Context, symbol string) (Tick, error)
	OrderSend(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// LastError is the terminal's description of its most recent failure.
type LastError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e LastError) String() string {
	return fmt.Sprintf("(%d, %q)", e.Code, e.Message)
}

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

type Position struct {
	Ticket       int64           `json:"ticket"`
	Symbol       string          `json:"symbol"`
	Side         Side            `json:"type"`
	Volume       decimal.Decimal `json:"volume"`
	PriceOpen    decimal.Decimal `json:"price_open"`
	PriceCurrent decimal.Decimal `json:"price_current"`
	StopLoss     decimal.Decimal `json:"sl"`
	TakeProfit   decimal.Decimal `json:"tp"`
}

// Protected reports whether both a stop loss and a take profit are set.
func (p Position) Protected() bool {
	return !p.StopLoss.IsZero() && !p.TakeProfit.IsZero()
}

type AccountInfo struct {
	Login    int64           `json:"login"`
	Server   string          `json:"server"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
	Equity   decimal.Decimal `json:"equity"`
}

// AccountSnapshot is the part of AccountInfo the mirror engine relies on,
// read while the account's session was active.
type AccountSnapshot struct {
	Login   int64
	Balance decimal.Decimal
	Equity  decimal.Decimal
}

type Tick struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Time   time.Time       `json:"time"`
}

// MirrorRequest is the market order the engine wants placed on the slave.
type MirrorRequest struct {
	Symbol     string
	Volume     decimal.Decimal
	Side       Side
	Price      decimal.Decimal
	StopLoss   decimal.Decimal
	TakeProfit decimal.Decimal
}

const (
	ActionDeal = 1 // TRADE_ACTION_DEAL

	OrderTimeGTC      = 0 // ORDER_TIME_GTC
	OrderFillingIOC   = 1 // ORDER_FILLING_IOC
	RetcodeDone       = 10009
	DefaultDeviation  = 20
	CommentMirrored   = "Copied trade"
	CommentCloseTrade = "Close copied trade"
)

// OrderRequest is the wire form of an order_send call.
type OrderRequest struct {
	Action      int             `json:"action"`
	Position    int64           `json:"position,omitempty"`
	Symbol      string          `json:"symbol"`
	Volume      decimal.Decimal `json:"volume"`
	Type        Side            `json:"type"`
	Price       decimal.Decimal `json:"price"`
	StopLoss    decimal.Decimal `json:"sl"`
	TakeProfit  decimal.Decimal `json:"tp"`
	Deviation   int             `json:"deviation"`
	Magic       int64           `json:"magic"`
	Comment     string          `json:"comment"`
	TypeTime    int             `json:"type_time"`
	TypeFilling int             `json:"type_filling"`
}

type OrderResult struct {
	Retcode uint32 `json:"retcode"`
	Order   int64  `json:"order"`
	Comment string `json:"comment"`
}
