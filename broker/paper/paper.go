// Package paper is an in-memory broker for dry runs and tests.
package paper

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/xyths/fxbot/broker"
	"github.com/xyths/fxbot/types"
)

var _ broker.Broker = (*Broker)(nil)

type Option func(b *Broker)

// WithFillModes restricts the filling policies the broker accepts.
func WithFillModes(modes ...types.FillMode) Option {
	return func(b *Broker) {
		b.accept = make(map[types.FillMode]bool)
		for _, m := range modes {
			b.accept[m] = true
		}
	}
}

// WithWindow serves c instead of a generated random walk.
func WithWindow(c types.Candle) Option {
	return func(b *Broker) {
		b.candle = c
	}
}

// WithSpread sets the ask-bid distance in points.
func WithSpread(points float64) Option {
	return func(b *Broker) {
		b.spread = points
	}
}

type Broker struct {
	lock      sync.Mutex
	symbol    types.Symbol
	spread    float64
	accept    map[types.FillMode]bool
	candle    types.Candle
	positions []types.Position
	ticket    uint64
	walk      *rand.Rand
	step      float64

	// every request seen, accepted or not
	Orders []types.OrderRequest
	Closes []broker.CloseRequest
}

func New(symbol types.Symbol, opts ...Option) *Broker {
	b := &Broker{
		symbol: symbol,
		spread: 15,
		accept: map[types.FillMode]bool{types.FillReturn: true, types.FillIOC: true, types.FillFOK: true},
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// WithWalk extends the window by one random bar on every Window call.
func WithWalk(seed int64, step float64) Option {
	return func(b *Broker) {
		b.walk = rand.New(rand.NewSource(seed))
		b.step = step
	}
}

// RandomWalk generates n M5 bars around start, for dry runs without market data.
func RandomWalk(seed int64, start, step float64, n int) types.Candle {
	r := rand.New(rand.NewSource(seed))
	c := types.NewCandle(n)
	ts := time.Now().Truncate(5 * time.Minute).Add(-time.Duration(n) * 5 * time.Minute).Unix()
	price := start
	for i := 0; i < n; i++ {
		c.Append(nextBar(r, ts+int64(i)*300, price, step))
		price = c.Close[i]
	}
	return c
}

func nextBar(r *rand.Rand, ts int64, open, step float64) types.Bar {
	price := open + (r.Float64()*2-1)*step
	return types.Bar{
		Timestamp: ts,
		Open:      open,
		High:      math.Max(open, price) + r.Float64()*step/2,
		Low:       math.Min(open, price) - r.Float64()*step/2,
		Close:     price,
		Volume:    float64(50 + r.Intn(100)),
	}
}

func (b *Broker) SetWindow(c types.Candle) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.candle = c
}

// SetPositions replaces the open positions, as if changed outside the engine.
func (b *Broker) SetPositions(positions ...types.Position) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.positions = append([]types.Position(nil), positions...)
	for _, p := range positions {
		if p.Ticket > b.ticket {
			b.ticket = p.Ticket
		}
	}
}

func (b *Broker) Close() error {
	return nil
}

func (b *Broker) Symbol(ctx context.Context, name string) (types.Symbol, error) {
	if name != b.symbol.Name {
		return types.Symbol{}, errors.Errorf("symbol %s not found", name)
	}
	return b.symbol, nil
}

func (b *Broker) Tick(ctx context.Context, symbol string) (types.Tick, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.tick()
}

func (b *Broker) tick() (types.Tick, error) {
	l := b.candle.Length()
	if l == 0 {
		return types.Tick{}, errors.Wrap(broker.ErrDataUnavailable, "no quote")
	}
	bid := b.candle.Close[l-1]
	return types.Tick{
		Time: b.candle.Timestamp[l-1],
		Bid:  bid,
		Ask:  bid + b.spread*b.symbol.Point,
	}, nil
}

func (b *Broker) Window(ctx context.Context, symbol, timeframe string, count int) (types.Candle, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	l := b.candle.Length()
	if l == 0 {
		return types.Candle{}, errors.Wrapf(broker.ErrDataUnavailable, "%s %s", symbol, timeframe)
	}
	if b.walk != nil {
		b.candle.Append(nextBar(b.walk, b.candle.Timestamp[l-1]+300, b.candle.Close[l-1], b.step))
	}
	return b.candle.Tail(count), nil
}

func (b *Broker) Positions(ctx context.Context, symbol string) ([]types.Position, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	var list []types.Position
	for _, p := range b.positions {
		if p.Symbol == symbol {
			list = append(list, p)
		}
	}
	return list, nil
}

func (b *Broker) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.Orders = append(b.Orders, req)
	if r, rejected := b.reject(req.FillMode, req.Volume); rejected {
		return r, broker.Check(r)
	}
	b.ticket++
	b.positions = append(b.positions, types.Position{
		Ticket:    b.ticket,
		Symbol:    req.Symbol,
		Direction: req.Direction,
		Volume:    req.Volume,
		Entry:     req.Price,
		SL:        req.SL,
		TP:        req.TP,
		Time:      time.Now().Unix(),
	})
	return types.OrderResult{
		Retcode: types.RetcodeDone,
		OrderID: b.ticket,
		Deal:    uint64(uuid.New().ID()),
		Volume:  req.Volume,
		Price:   req.Price,
		SL:      req.SL,
		TP:      req.TP,
		Comment: "paper fill",
	}, nil
}

func (b *Broker) ClosePosition(ctx context.Context, req broker.CloseRequest) (types.OrderResult, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.Closes = append(b.Closes, req)
	if r, rejected := b.reject(req.FillMode, req.Position.Volume); rejected {
		return r, broker.Check(r)
	}
	for i, p := range b.positions {
		if p.Ticket == req.Position.Ticket {
			b.positions = append(b.positions[:i], b.positions[i+1:]...)
			return types.OrderResult{
				Retcode: types.RetcodeDone,
				OrderID: p.Ticket,
				Deal:    uint64(uuid.New().ID()),
				Volume:  p.Volume,
				Price:   req.Price,
				Comment: "paper close",
			}, nil
		}
	}
	r := types.OrderResult{Retcode: types.RetcodeReject, Comment: "position not found"}
	return r, broker.Check(r)
}

func (b *Broker) reject(mode types.FillMode, volume float64) (types.OrderResult, bool) {
	if !b.accept[mode] {
		return types.OrderResult{Retcode: types.RetcodeInvalidFill, Comment: "Unsupported filling mode"}, true
	}
	if volume <= 0 {
		return types.OrderResult{Retcode: types.RetcodeReject, Comment: "Invalid volume"}, true
	}
	return types.OrderResult{}, false
}
