// Package bridge is a Terminal that forwards calls over HTTP to a bridge
// service running beside the trading terminal.
//
// Requests and responses are JSON. Prices and volumes go on the wire as
// plain numbers ("volume": 0.25), never as quoted strings.
package bridge

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/rustyeddy/copytrader/broker"
	"github.com/shopspring/decimal"
)

const (
	// DefaultURL is where a terminal bridge listens when run next to the terminal.
	DefaultURL = "http://127.0.0.1:8228"

	DefaultTimeout = 30 * time.Second
)

var (
	// ErrCallFailed is returned when the bridge answers but the terminal
	// call it forwarded failed (MT5 returned False or None).
	ErrCallFailed = errors.New("terminal call failed")
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Client talks to a terminal bridge: a small HTTP service running beside the
// trading terminal that forwards each call to the terminal's API.
type Client struct {
	http *resty.Client
}

// NewClient creates a bridge client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// No client-side retries: a login or order_send must never be replayed
	// behind the caller's back.
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: c}
}

type okResponse struct {
	OK bool `json:"ok"`
}

type loginRequest struct {
	Login    int64  `json:"login"`
	Password string `json:"password"`
	Server   string `json:"server"`
}

func (c *Client) Initialize(ctx context.Context) error {
	var out okResponse
	if err := c.do(ctx, http.MethodPost, "/initialize", nil, &out); err != nil {
		return err
	}
	if !out.OK {
		return errors.Wrap(ErrCallFailed, "initialize")
	}
	return nil
}

func (c *Client) Login(ctx context.Context, login int64, password, server string) error {
	var out okResponse
	req := loginRequest{Login: login, Password: password, Server: server}
	if err := c.do(ctx, http.MethodPost, "/login", req, &out); err != nil {
		return err
	}
	if !out.OK {
		return errors.Wrapf(ErrCallFailed, "login %d", login)
	}
	return nil
}

func (c *Client) LastError(ctx context.Context) (broker.LastError, error) {
	var out broker.LastError
	err := c.do(ctx, http.MethodGet, "/last_error", nil, &out)
	return out, err
}

func (c *Client) AccountInfo(ctx context.Context) (broker.AccountInfo, error) {
	var out broker.AccountInfo
	err := c.do(ctx, http.MethodGet, "/account_info", nil, &out)
	return out, err
}

func (c *Client) PositionsGet(ctx context.Context) ([]broker.Position, error) {
	var out []broker.Position
	if err := c.do(ctx, http.MethodGet, "/positions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SymbolInfoTick(ctx context.Context, symbol string) (broker.Tick, error) {
	var out broker.Tick
	err := c.do(ctx, http.MethodGet, "/symbols/"+url.PathEscape(symbol)+"/tick", nil, &out)
	return out, err
}

func (c *Client) OrderSend(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	var out broker.OrderResult
	err := c.do(ctx, http.MethodPost, "/order_send", req, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	r := c.http.R().SetContext(ctx)
	if body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		r.SetResult(out)
	}

	resp, err := r.Execute(method, path)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.IsError() {
		return errors.Wrapf(ErrCallFailed, "%s %s: http %d: %s",
			method, path, resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

var _ broker.Terminal = (*Client)(nil)
