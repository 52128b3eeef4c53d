package trader

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/xyths/fxbot/types"
)

type closer struct {
	positions []types.Position
	closed    []uint64
	fail      map[uint64]bool
}

func (c *closer) Positions(ctx context.Context) ([]types.Position, error) {
	return c.positions, nil
}

func (c *closer) Close(ctx context.Context, pos types.Position) (types.OrderResult, error) {
	if c.fail[pos.Ticket] {
		return types.OrderResult{}, errors.New("requote")
	}
	c.closed = append(c.closed, pos.Ticket)
	return types.OrderResult{Retcode: types.RetcodeDone, OrderID: pos.Ticket}, nil
}

func TestDebouncer_ShouldTrade(t *testing.T) {
	d := NewDebouncer(&closer{})
	require.Equal(t, types.None, d.Last())
	require.False(t, d.ShouldTrade(types.None))
	require.True(t, d.ShouldTrade(types.Buy))
	require.False(t, d.ShouldTrade(types.Buy))
	require.False(t, d.ShouldTrade(types.None))
	require.Equal(t, types.Buy, d.Last())
	require.True(t, d.ShouldTrade(types.Sell))
	require.True(t, d.ShouldTrade(types.Buy))

	d.Rollback()
	require.Equal(t, types.Sell, d.Last())
	require.True(t, d.ShouldTrade(types.Buy))
}

func TestDebouncer_CloseOnChange(t *testing.T) {
	long := types.Position{Ticket: 1, Direction: types.Long, Volume: 0.03}
	c := &closer{positions: []types.Position{long}}
	d := NewDebouncer(c)
	ctx := context.Background()

	closed, err := d.CloseOnChange(ctx, types.Buy)
	require.NoError(t, err)
	require.Empty(t, closed)
	require.Equal(t, long, *d.Position())

	_, err = d.CloseOnChange(ctx, types.None)
	require.NoError(t, err)
	require.Empty(t, c.closed)

	closed, err = d.CloseOnChange(ctx, types.Sell)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, []uint64{1}, c.closed)
	require.Nil(t, d.Position())
}

func TestDebouncer_CloseOnChangeFailure(t *testing.T) {
	c := &closer{
		positions: []types.Position{
			{Ticket: 1, Direction: types.Short},
			{Ticket: 2, Direction: types.Short},
		},
		fail: map[uint64]bool{1: true},
	}
	d := NewDebouncer(c)
	closed, err := d.CloseOnChange(context.Background(), types.Buy)
	require.Error(t, err)
	require.Len(t, closed, 1)
	require.Equal(t, []uint64{2}, c.closed)
	require.Equal(t, uint64(1), d.Position().Ticket)
}
