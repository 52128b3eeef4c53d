package strategy

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/xyths/fxbot/types"
	"go.uber.org/zap"
)

// fromCloses builds a window where every bar opens at the previous close.
func fromCloses(closes ...float64) types.Candle {
	c := types.NewCandle(len(closes))
	for i, cl := range closes {
		open := cl
		if i > 0 {
			open = closes[i-1]
		}
		c.Append(types.Bar{
			Timestamp: int64(i * 300),
			Open:      open,
			High:      math.Max(open, cl) + 0.5,
			Low:       math.Min(open, cl) - 0.5,
			Close:     cl,
			Volume:    100,
		})
	}
	return c
}

func repeat(v float64, n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// flat, then a slow drift, then a jump against the drift
func reversal(drift, jump float64) []float64 {
	s := repeat(300, 50)
	for i := 1; i <= 10; i++ {
		s = append(s, 300+drift*float64(i))
	}
	return append(s, jump)
}

func mustNew(t *testing.T, k Kind) Strategy {
	s, err := New(k, Params{})
	require.NoError(t, err)
	return s
}

func evaluate1(t *testing.T, k Kind, c types.Candle) types.Signal {
	sig, err := mustNew(t, k).Evaluate(c)
	require.NoError(t, err)
	return sig
}

func TestCrossStrategies(t *testing.T) {
	for _, k := range []Kind{EMACross, MACD} {
		t.Run(string(k), func(t *testing.T) {
			require.Equal(t, types.Buy, evaluate1(t, k, fromCloses(reversal(-1, 400)...)))
			require.Equal(t, types.Sell, evaluate1(t, k, fromCloses(reversal(1, 200)...)))
			require.Equal(t, types.None, evaluate1(t, k, fromCloses(repeat(300, 61)...)))
		})
	}
}

func TestRSIStrategy(t *testing.T) {
	var falling, rising []float64
	for i := 0; i < 20; i++ {
		falling = append(falling, 100-float64(i))
		rising = append(rising, 100+float64(i))
	}
	require.Equal(t, types.Buy, evaluate1(t, RSI, fromCloses(falling...)))
	require.Equal(t, types.Sell, evaluate1(t, RSI, fromCloses(rising...)))
	require.Equal(t, types.None, evaluate1(t, RSI, fromCloses(repeat(100, 20)...)))
}

func TestBollingerStrategy(t *testing.T) {
	require.Equal(t, types.Buy, evaluate1(t, Bollinger, fromCloses(append(repeat(100, 24), 90)...)))
	require.Equal(t, types.Sell, evaluate1(t, Bollinger, fromCloses(append(repeat(100, 24), 110)...)))
	require.Equal(t, types.None, evaluate1(t, Bollinger, fromCloses(repeat(100, 25)...)))
}

func TestBollingerStrategy_SampleDeviation(t *testing.T) {
	closes := []float64{100}
	for i := 0; i < 19; i++ {
		closes = append(closes, 99+2*float64(i%2))
	}
	// below the population lower band (97.631), above the sample one (97.574)
	require.Equal(t, types.None, evaluate1(t, Bollinger, fromCloses(append(closes, 97.60)...)))
	require.Equal(t, types.Buy, evaluate1(t, Bollinger, fromCloses(append(closes, 97.55)...)))

	_, err := New(Bollinger, Params{BBPeriod: 1})
	require.Error(t, err)
}

func trending(step float64, n int) types.Candle {
	c := types.NewCandle(n)
	for i := 0; i < n; i++ {
		cl := 100 + step*float64(i)
		c.Append(types.Bar{Timestamp: int64(i), Open: cl, High: cl + 1, Low: cl - 1, Close: cl, Volume: 100})
	}
	return c
}

func TestADXStrategy(t *testing.T) {
	require.Equal(t, types.Buy, evaluate1(t, ADX, trending(1, 60)))
	require.Equal(t, types.Sell, evaluate1(t, ADX, trending(-1, 60)))
	require.Equal(t, types.None, evaluate1(t, ADX, trending(0, 60)))
}

func ranged(n int, last types.Bar) types.Candle {
	c := types.NewCandle(n + 1)
	for i := 0; i < n; i++ {
		c.Append(types.Bar{Timestamp: int64(i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 100})
	}
	c.Append(last)
	return c
}

func TestBreakoutStrategy(t *testing.T) {
	up := types.Bar{Open: 100, High: 106, Low: 100, Close: 105, Volume: 100}
	down := types.Bar{Open: 100, High: 100, Low: 94, Close: 95, Volume: 100}
	inside := types.Bar{Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 100}
	require.Equal(t, types.Buy, evaluate1(t, Breakout, ranged(25, up)))
	require.Equal(t, types.Sell, evaluate1(t, Breakout, ranged(25, down)))
	require.Equal(t, types.None, evaluate1(t, Breakout, ranged(25, inside)))
}

func TestPriceActionStrategy(t *testing.T) {
	tests := []struct {
		name       string
		prev, curr types.Bar
		want       types.Signal
	}{
		{"bullish engulfing", types.Bar{Open: 101, Close: 100}, types.Bar{Open: 99.5, Close: 102}, types.Buy},
		{"bearish engulfing", types.Bar{Open: 100, Close: 101}, types.Bar{Open: 101.5, Close: 99}, types.Sell},
		{"inside bar", types.Bar{Open: 101, Close: 100}, types.Bar{Open: 100.2, Close: 100.8}, types.None},
		{"same colour", types.Bar{Open: 100, Close: 101}, types.Bar{Open: 99, Close: 103}, types.None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := types.NewCandle(2)
			c.Append(tt.prev)
			c.Append(tt.curr)
			require.Equal(t, tt.want, evaluate1(t, PriceAction, c))
		})
	}
}

func TestVolumeStrategy(t *testing.T) {
	spike := func(step float64) types.Candle {
		c := types.NewCandle(21)
		for i := 0; i < 21; i++ {
			v := 100.0
			if i == 20 {
				v = 200
			}
			c.Append(types.Bar{Open: 100, High: 101, Low: 99, Close: 100 + step*float64(i), Volume: v})
		}
		return c
	}
	require.Equal(t, types.Buy, evaluate1(t, Volume, spike(0.1)))
	require.Equal(t, types.Sell, evaluate1(t, Volume, spike(-0.1)))
	require.Equal(t, types.None, evaluate1(t, Volume, spike(0)))
	require.Equal(t, types.None, evaluate1(t, Volume, fromCloses(repeat(100, 21)...)))
}

func TestInsufficientWindow(t *testing.T) {
	short := fromCloses(repeat(100, 5)...)
	for _, k := range All {
		sig, err := mustNew(t, k).Evaluate(short)
		require.NoError(t, err, k)
		require.Equal(t, types.None, sig, k)
	}
	empty := types.NewCandle(0)
	for _, k := range All {
		sig, err := mustNew(t, k).Evaluate(empty)
		require.NoError(t, err, k)
		require.Equal(t, types.None, sig, k)
	}
}

func TestNew(t *testing.T) {
	for _, k := range All {
		s := mustNew(t, k)
		require.Equal(t, string(k), s.Name())
		require.Greater(t, s.MinBars(), 1)
	}
	_, err := New("ichimoku", Params{})
	require.Error(t, err)

	s, err := New(EMACross, Params{EMAFast: 5, EMASlow: 10})
	require.NoError(t, err)
	require.Equal(t, 11, s.MinBars())
}

func TestBuild(t *testing.T) {
	all, err := Build(nil, Params{})
	require.NoError(t, err)
	require.Len(t, all, len(All))

	some, err := Build([]string{"rsi", "macd"}, Params{})
	require.NoError(t, err)
	require.Len(t, some, 2)

	_, err = Build([]string{"rsi", "rsi"}, Params{})
	require.Error(t, err)
	_, err = Build([]string{"rsi", "nope"}, Params{})
	require.Error(t, err)
}

type stub struct {
	name    string
	signal  types.Signal
	err     error
	explode bool
}

func (s *stub) Name() string { return s.name }
func (s *stub) MinBars() int { return 1 }
func (s *stub) Evaluate(types.Candle) (types.Signal, error) {
	if s.explode {
		panic("index out of range")
	}
	return s.signal, s.err
}

func TestEngine_FaultIsolation(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		e := NewEngine(zap.NewNop().Sugar(), parallel,
			&stub{name: "buyer", signal: types.Buy},
			&stub{name: "panicker", explode: true},
			&stub{name: "failer", err: errors.New("bad window")},
			&stub{name: "quiet", signal: types.None},
		)
		set := e.Evaluate(context.Background(), fromCloses(1, 2, 3))
		require.Len(t, set, 4)
		require.Equal(t, types.Buy, set["buyer"].Signal)
		require.False(t, set["buyer"].Failed())
		require.False(t, set["quiet"].Failed())

		var fault *StrategyFault
		require.True(t, set["panicker"].Failed())
		require.True(t, errors.As(set["panicker"].Err, &fault))
		require.Equal(t, "panicker", fault.Strategy)
		require.Contains(t, fault.Reason, "panic")

		require.True(t, set["failer"].Failed())
		require.Contains(t, set["failer"].Err.Error(), "bad window")
		require.Len(t, set.Faults(), 2)
	}
}

func TestEngine_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, parallel := range []bool{false, true} {
		e := NewEngine(zap.NewNop().Sugar(), parallel,
			&stub{name: "buyer", signal: types.Buy},
			&stub{name: "seller", signal: types.Sell},
		)
		set := e.Evaluate(ctx, fromCloses(1, 2, 3))
		require.Len(t, set, 2)
		require.Len(t, set.Faults(), 2)
		require.Contains(t, set["buyer"].Err.Error(), context.Canceled.Error())
	}
}

func TestEngine_MalformedColumn(t *testing.T) {
	all, err := Build(nil, Params{})
	require.NoError(t, err)
	c := fromCloses(append(repeat(100, 24), 90)...)
	c.Volume[10] = math.NaN()

	set := NewEngine(zap.NewNop().Sugar(), false, all...).Evaluate(context.Background(), c)
	require.Len(t, set, len(All))
	require.True(t, set[string(Volume)].Failed())
	require.False(t, set[string(Bollinger)].Failed())
	require.Equal(t, types.Buy, set[string(Bollinger)].Signal)
}
