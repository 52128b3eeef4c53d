// Package history records executed trades.
package history

import (
	"context"
	"strconv"
	"time"

	"github.com/xyths/fxbot/types"
	"go.uber.org/multierr"
)

var Header = []string{"timestamp", "symbol", "signal", "volume", "price", "sl", "tp", "order_id"}

type Record struct {
	Time    time.Time `bson:"time"`
	Symbol  string    `bson:"symbol"`
	Signal  string    `bson:"signal"`
	Volume  float64   `bson:"volume"`
	Price   float64   `bson:"price"`
	SL      float64   `bson:"sl"`
	TP      float64   `bson:"tp"`
	OrderID uint64    `bson:"orderId"`
}

// Row renders the record as one CSV line, in the order of Header.
func (r Record) Row() []string {
	return []string{
		r.Time.Format(types.TimeLayout),
		r.Symbol,
		r.Signal,
		formatFloat(r.Volume),
		formatFloat(r.Price),
		formatFloat(r.SL),
		formatFloat(r.TP),
		strconv.FormatUint(r.OrderID, 10),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type Log interface {
	Append(ctx context.Context, r Record) error
}

// Multi writes every record to all logs, collecting their errors.
type Multi []Log

func (m Multi) Append(ctx context.Context, r Record) (err error) {
	for _, l := range m {
		err = multierr.Append(err, l.Append(ctx, r))
	}
	return
}

// Discard drops every record.
type Discard struct{}

func (Discard) Append(context.Context, Record) error { return nil }
