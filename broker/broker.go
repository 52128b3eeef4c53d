// Package broker declares what the trading engine needs from a broker connection.
package broker

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/xyths/fxbot/types"
)

// MarketData serves OHLCV windows, oldest bar first.
type MarketData interface {
	// Window fails with ErrDataUnavailable when the source returns no bars.
	Window(ctx context.Context, symbol, timeframe string, count int) (types.Candle, error)
}

// Gateway executes and queries orders on the trading account.
// PlaceOrder and ClosePosition fail with *Rejected on any non-success return code.
type Gateway interface {
	Symbol(ctx context.Context, name string) (types.Symbol, error)
	Tick(ctx context.Context, symbol string) (types.Tick, error)
	Positions(ctx context.Context, symbol string) ([]types.Position, error)
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)
	ClosePosition(ctx context.Context, req CloseRequest) (types.OrderResult, error)
}

// Broker is a connected account that also serves market data.
type Broker interface {
	Gateway
	MarketData
	Close() error
}

// CloseRequest closes the whole of Position at Price.
type CloseRequest struct {
	Position  types.Position
	Price     float64
	Deviation int
	Magic     int64
	Comment   string
	FillMode  types.FillMode
}

var ErrDataUnavailable = errors.New("market data unavailable")

// Rejected is a refused order or close.
type Rejected struct {
	Code    uint32
	Comment string
}

func (e *Rejected) Error() string {
	return fmt.Sprintf("broker rejected, retcode %d: %s", e.Code, e.Comment)
}

// Check converts a non-success result into *Rejected.
func Check(r types.OrderResult) error {
	if r.Success() {
		return nil
	}
	return &Rejected{Code: r.Retcode, Comment: r.Comment}
}

// ConnectionFault means the broker could not be reached.
type ConnectionFault struct {
	Op  string
	Err error
}

func (e *ConnectionFault) Error() string {
	return fmt.Sprintf("broker connection fault in %s: %s", e.Op, e.Err)
}

func (e *ConnectionFault) Unwrap() error {
	return e.Err
}

// IsRejected reports whether err is, or wraps, a *Rejected.
func IsRejected(err error) bool {
	var r *Rejected
	return errors.As(err, &r)
}
