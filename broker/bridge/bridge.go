// Package bridge talks to a MetaTrader 5 terminal through a local HTTP sidecar.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xyths/fxbot/broker"
	"github.com/xyths/fxbot/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var _ broker.Broker = (*Client)(nil)

type Config struct {
	Host     string  `json:"host"`
	Login    int64   `json:"login"`
	Password string  `json:"password"`
	Server   string  `json:"server"`
	Timeout  string  `json:"timeout"`
	RPS      float64 `json:"rps"` // requests per second, 0 means unlimited
}

type Client struct {
	config  Config
	base    string
	hc      *http.Client
	limiter *rate.Limiter

	Sugar *zap.SugaredLogger
}

func New(cfg Config, sugar *zap.SugaredLogger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if base == "" {
		base = DefaultHost
	}
	timeout := 15 * time.Second
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, errors.Wrapf(err, "bad timeout %q", cfg.Timeout)
		}
		timeout = d
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &Client{
		config:  cfg,
		base:    base,
		hc:      &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		Sugar:   sugar,
	}, nil
}

// Dial creates the client and logs in to the trading account.
func Dial(ctx context.Context, cfg Config, sugar *zap.SugaredLogger) (*Client, error) {
	c, err := New(cfg, sugar)
	if err != nil {
		return nil, err
	}
	if err := c.Login(ctx); err != nil {
		return nil, &broker.ConnectionFault{Op: "login", Err: err}
	}
	return c, nil
}

func (c *Client) Login(ctx context.Context) error {
	var r responseLogin
	req := requestLogin{Login: c.config.Login, Password: c.config.Password, Server: c.config.Server}
	if err := c.request(ctx, POST, pathLogin, nil, req, &r); err != nil {
		return err
	}
	if !r.OK {
		return errors.Errorf("login %d@%s refused: %s", c.config.Login, c.config.Server, r.Error)
	}
	c.Sugar.Infof("logged in to %s as %d", c.config.Server, c.config.Login)
	return nil
}

func (c *Client) Close() error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *Client) Symbol(ctx context.Context, name string) (types.Symbol, error) {
	var r responseSymbol
	if err := c.request(ctx, GET, pathSymbol+url.PathEscape(name), nil, nil, &r); err != nil {
		return types.Symbol{}, err
	}
	if r.Point == 0 {
		return types.Symbol{}, errors.Errorf("symbol %s not found", name)
	}
	return types.Symbol{
		Name:         r.Name,
		Digits:       r.Digits,
		Point:        r.Point,
		ContractSize: r.ContractSize,
		VolumeMin:    r.VolumeMin,
		VolumeMax:    r.VolumeMax,
	}, nil
}

func (c *Client) Tick(ctx context.Context, symbol string) (types.Tick, error) {
	var r responseTick
	if err := c.request(ctx, GET, pathTick+url.PathEscape(symbol), nil, nil, &r); err != nil {
		return types.Tick{}, err
	}
	return types.Tick{Time: r.Time, Bid: r.Bid, Ask: r.Ask}, nil
}

func (c *Client) Window(ctx context.Context, symbol, timeframe string, count int) (types.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", timeframe)
	q.Set("count", strconv.Itoa(count))
	var rates []rawRate
	if err := c.request(ctx, GET, pathRates, q, nil, &rates); err != nil {
		return types.Candle{}, err
	}
	if len(rates) == 0 {
		return types.Candle{}, errors.Wrapf(broker.ErrDataUnavailable, "%s %s", symbol, timeframe)
	}
	candle := types.NewCandle(len(rates))
	for _, r := range rates {
		candle.Append(types.Bar{
			Timestamp: r.Time,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.TickVolume,
		})
	}
	return candle, nil
}

func (c *Client) Positions(ctx context.Context, symbol string) ([]types.Position, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	var raw []rawPosition
	if err := c.request(ctx, GET, pathPositions, q, nil, &raw); err != nil {
		return nil, err
	}
	positions := make([]types.Position, 0, len(raw))
	for _, p := range raw {
		d := types.Long
		if p.Type == orderTypeSell {
			d = types.Short
		}
		positions = append(positions, types.Position{
			Ticket:    p.Ticket,
			Symbol:    p.Symbol,
			Direction: d,
			Volume:    p.Volume,
			Entry:     p.PriceOpen,
			SL:        p.SL,
			TP:        p.TP,
			Time:      p.Time,
		})
	}
	return positions, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	return c.send(ctx, requestOrder{
		Action:      actionDeal,
		Symbol:      req.Symbol,
		Volume:      req.Volume,
		Type:        orderType(req.Direction),
		Price:       req.Price,
		SL:          req.SL,
		TP:          req.TP,
		Deviation:   req.Deviation,
		Magic:       req.Magic,
		Comment:     req.Comment,
		TypeTime:    timeGTC,
		TypeFilling: filling(req.FillMode),
		Position:    req.Position,
	})
}

// ClosePosition sends the opposite deal bound to the position ticket.
func (c *Client) ClosePosition(ctx context.Context, req broker.CloseRequest) (types.OrderResult, error) {
	return c.send(ctx, requestOrder{
		Action:      actionDeal,
		Symbol:      req.Position.Symbol,
		Volume:      req.Position.Volume,
		Type:        orderType(req.Position.Direction.Opposite()),
		Price:       req.Price,
		Deviation:   req.Deviation,
		Magic:       req.Magic,
		Comment:     req.Comment,
		TypeTime:    timeGTC,
		TypeFilling: filling(req.FillMode),
		Position:    req.Position.Ticket,
	})
}

func (c *Client) send(ctx context.Context, o requestOrder) (types.OrderResult, error) {
	var r responseOrder
	if err := c.request(ctx, POST, pathOrder, nil, o, &r); err != nil {
		return types.OrderResult{}, err
	}
	result := types.OrderResult{
		Retcode: r.Retcode,
		OrderID: r.Order,
		Deal:    r.Deal,
		Volume:  r.Volume,
		Price:   r.Price,
		SL:      o.SL,
		TP:      o.TP,
		Comment: r.Comment,
	}
	return result, broker.Check(result)
}

func orderType(d types.Direction) int {
	if d == types.Short {
		return orderTypeSell
	}
	return orderTypeBuy
}

func filling(m types.FillMode) int {
	switch m {
	case types.FillIOC:
		return fillingIOC
	case types.FillFOK:
		return fillingFOK
	default:
		return fillingReturn
	}
}

func (c *Client) request(ctx context.Context, method, path string, query url.Values, body, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.hc.Do(req)
	if err != nil {
		return &broker.ConnectionFault{Op: path, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return &broker.ConnectionFault{Op: path, Err: err}
	}
	if resp.StatusCode >= 300 {
		var e responseError
		_ = json.Unmarshal(data, &e)
		return errors.Errorf("%s %s: status %d, %s", method, path, resp.StatusCode, e.Error)
	}
	if err = json.Unmarshal(data, result); err != nil {
		c.Sugar.Debugf("raw response: %s", string(data))
		return errors.Wrapf(err, "decode %s", path)
	}
	return nil
}
