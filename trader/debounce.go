package trader

import (
	"context"

	"github.com/pkg/errors"
	"github.com/xyths/fxbot/types"
	"go.uber.org/multierr"
)

// PositionCloser is the part of the executor the debouncer drives.
type PositionCloser interface {
	Positions(ctx context.Context) ([]types.Position, error)
	Close(ctx context.Context, pos types.Position) (types.OrderResult, error)
}

// Debouncer lets each distinct decision act once, and flattens positions against a new decision.
type Debouncer struct {
	closer PositionCloser

	last     types.Decision
	previous types.Decision
	position *types.Position
}

func NewDebouncer(closer PositionCloser) *Debouncer {
	return &Debouncer{closer: closer}
}

func (d *Debouncer) Last() types.Decision {
	return d.last
}

// Position is the open position seen by the last CloseOnChange, nil when flat.
func (d *Debouncer) Position() *types.Position {
	return d.position
}

// ShouldTrade reports whether decision is a change worth acting on, and records it if so.
func (d *Debouncer) ShouldTrade(decision types.Decision) bool {
	if decision == types.None || decision == d.last {
		return false
	}
	d.previous = d.last
	d.last = decision
	return true
}

// Rollback forgets the decision recorded by the last true ShouldTrade, after its open failed.
func (d *Debouncer) Rollback() {
	d.last = d.previous
}

// CloseOnChange closes every open position whose direction opposes decision.
// Closed positions are reported through the returned slice even when a later close fails.
func (d *Debouncer) CloseOnChange(ctx context.Context, decision types.Decision) (closed []types.OrderResult, err error) {
	positions, err := d.closer.Positions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get positions")
	}
	d.position = nil
	for i, p := range positions {
		if decision == types.None || !p.Direction.Opposes(decision) {
			if d.position == nil {
				d.position = &positions[i]
			}
			continue
		}
		r, err1 := d.closer.Close(ctx, p)
		if err1 != nil {
			err = multierr.Append(err, err1)
			if d.position == nil {
				d.position = &positions[i]
			}
			continue
		}
		closed = append(closed, r)
	}
	return closed, err
}
