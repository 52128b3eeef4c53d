// Package executor sizes, opens and closes market positions on a broker gateway.
package executor

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xyths/fxbot/broker"
	"github.com/xyths/fxbot/metrics"
	"github.com/xyths/fxbot/types"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Executor struct {
	gw     broker.Gateway
	symbol types.Symbol
	id     *ClientIdManager

	Magic     int64
	Deviation int // max slippage in points
	Sugar     *zap.SugaredLogger
}

// New creates an executor for one symbol. A nil id manager keeps order counters in memory.
func New(gw broker.Gateway, symbol types.Symbol, id *ClientIdManager, sugar *zap.SugaredLogger) *Executor {
	if id == nil {
		id = NewClientIdManager(sep, nil)
	}
	return &Executor{
		gw:        gw,
		symbol:    symbol,
		id:        id,
		Magic:     DefaultMagic,
		Deviation: DefaultDeviation,
		Sugar:     sugar,
	}
}

func (e *Executor) Symbol() string {
	return e.symbol.Name
}
func (e *Executor) Point() float64 {
	return e.symbol.Point
}
func (e *Executor) Digits() int32 {
	return e.symbol.Digits
}
func (e *Executor) ContractSize() float64 {
	return e.symbol.ContractSize
}

func (e *Executor) Positions(ctx context.Context) ([]types.Position, error) {
	return e.gw.Positions(ctx, e.Symbol())
}

// Levels returns entry, stop-loss and take-profit prices for a new position.
// A non-positive pip distance leaves that level unset.
func (e *Executor) Levels(d types.Direction, tick types.Tick, slPips, tpPips float64) (price, sl, tp float64) {
	entry := decimal.NewFromFloat(tick.Bid)
	if d == types.Long {
		entry = decimal.NewFromFloat(tick.Ask)
	}
	entry = entry.Round(e.symbol.Digits)
	point := decimal.NewFromFloat(e.symbol.Point)
	sign := decimal.NewFromInt(int64(d))
	level := func(pips float64, towards decimal.Decimal) float64 {
		if pips <= 0 {
			return 0
		}
		f, _ := entry.Add(towards.Mul(decimal.NewFromFloat(pips)).Mul(point)).Round(e.symbol.Digits).Float64()
		return f
	}
	price, _ = entry.Float64()
	return price, level(slPips, sign.Neg()), level(tpPips, sign)
}

// Open submits a market order, trying fill modes in order until the broker accepts one.
func (e *Executor) Open(ctx context.Context, d types.Direction, volume, slPips, tpPips float64) (types.OrderResult, error) {
	if d == types.Flat {
		return types.OrderResult{}, errors.New("open needs a direction")
	}
	tick, err := e.gw.Tick(ctx, e.Symbol())
	if err != nil {
		return types.OrderResult{}, errors.Wrap(err, "get tick")
	}
	price, sl, tp := e.Levels(d, tick, slPips, tpPips)
	prefix := prefixOpenLong
	if d == types.Short {
		prefix = prefixOpenShort
	}
	comment, err := e.id.GetClientOrderId(ctx, prefix)
	if err != nil {
		e.Sugar.Errorf("get order comment error: %s", err)
	}
	req := types.OrderRequest{
		Symbol:    e.Symbol(),
		Direction: d,
		Volume:    volume,
		Price:     price,
		SL:        sl,
		TP:        tp,
		Deviation: e.Deviation,
		Magic:     e.Magic,
		Comment:   comment,
	}

	var last error
	for _, mode := range types.FillModes {
		req.FillMode = mode
		r, err := e.gw.PlaceOrder(ctx, req)
		if err == nil {
			e.Sugar.Infof("open %s %.2f %s @ %v, SL %v, TP %v, fill %s, order %d / %s",
				d, volume, e.Symbol(), r.Price, sl, tp, mode, r.OrderID, comment)
			metrics.Orders.WithLabelValues("open", d.String(), "accepted").Inc()
			if err1 := e.id.OpenAdd(ctx); err1 != nil {
				e.Sugar.Errorf("update open count error: %s", err1)
			}
			if r.SL == 0 && r.TP == 0 {
				r.SL, r.TP = sl, tp
			}
			return r, nil
		}
		if !broker.IsRejected(err) {
			metrics.Orders.WithLabelValues("open", d.String(), "error").Inc()
			return r, errors.Wrapf(err, "open %s with fill mode %s", d, mode)
		}
		e.Sugar.Warnf("open %s rejected with fill mode %s: %s", d, mode, err)
		metrics.FillRejects.WithLabelValues(mode.String()).Inc()
		last = err
	}
	metrics.Orders.WithLabelValues("open", d.String(), "rejected").Inc()
	return types.OrderResult{}, errors.Wrap(last, "all fill modes rejected")
}

// Close flattens the whole position at the best opposite price, fill-or-kill only.
func (e *Executor) Close(ctx context.Context, pos types.Position) (types.OrderResult, error) {
	tick, err := e.gw.Tick(ctx, e.Symbol())
	if err != nil {
		return types.OrderResult{}, errors.Wrap(err, "get tick")
	}
	price := tick.Ask
	prefix := prefixCloseShort
	if pos.Direction == types.Long {
		price = tick.Bid
		prefix = prefixCloseLong
	}
	comment, err := e.id.GetClientOrderId(ctx, prefix)
	if err != nil {
		e.Sugar.Errorf("get order comment error: %s", err)
	}
	r, err := e.gw.ClosePosition(ctx, broker.CloseRequest{
		Position:  pos,
		Price:     price,
		Deviation: e.Deviation,
		Magic:     e.Magic,
		Comment:   comment,
		FillMode:  types.FillFOK,
	})
	if err != nil {
		result := "error"
		if broker.IsRejected(err) {
			result = "rejected"
		}
		metrics.Orders.WithLabelValues("close", pos.Direction.String(), result).Inc()
		return r, errors.Wrapf(err, "close position %d", pos.Ticket)
	}
	e.Sugar.Infof("closed %s @ %v, order %d / %s", pos, r.Price, r.OrderID, comment)
	metrics.Orders.WithLabelValues("close", pos.Direction.String(), "accepted").Inc()
	if err1 := e.id.CloseAdd(ctx); err1 != nil {
		e.Sugar.Errorf("update close count error: %s", err1)
	}
	return r, nil
}

// CloseAll closes every open position of the symbol and reports how many were closed.
func (e *Executor) CloseAll(ctx context.Context) (closed int, err error) {
	positions, err := e.Positions(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "get positions")
	}
	for _, p := range positions {
		if _, err1 := e.Close(ctx, p); err1 != nil {
			err = multierr.Append(err, err1)
			continue
		}
		closed++
	}
	return closed, err
}
