package strategy

import (
	"github.com/markcheno/go-talib"
	"github.com/xyths/fxbot/ta"
	"github.com/xyths/fxbot/types"
)

// BreakoutStrategy signals a close beyond the range of the previous bars.
type BreakoutStrategy struct {
	Period int
}

func (s *BreakoutStrategy) Name() string { return string(Breakout) }

func (s *BreakoutStrategy) MinBars() int { return s.Period + 1 }

func (s *BreakoutStrategy) Evaluate(c types.Candle) (types.Signal, error) {
	if c.Length() < s.MinBars() {
		return types.None, nil
	}
	if err := types.CheckSeries(c.High, c.Low, c.Close); err != nil {
		return types.None, err
	}
	// the range ends at the previous bar, the current one is the candidate
	upper := ta.Prev(talib.Max(c.High, s.Period))
	lower := ta.Prev(talib.Min(c.Low, s.Period))
	last := ta.Last(c.Close)
	switch {
	case last > upper:
		return types.Buy, nil
	case last < lower:
		return types.Sell, nil
	}
	return types.None, nil
}

// PriceActionStrategy detects two-bar engulfing candles.
type PriceActionStrategy struct{}

func (s *PriceActionStrategy) Name() string { return string(PriceAction) }

func (s *PriceActionStrategy) MinBars() int { return 2 }

func (s *PriceActionStrategy) Evaluate(c types.Candle) (types.Signal, error) {
	l := c.Length()
	if l < s.MinBars() {
		return types.None, nil
	}
	if err := types.CheckSeries(c.Open, c.Close); err != nil {
		return types.None, err
	}
	prev, curr := c.Bar(l-2), c.Bar(l-1)
	if curr.Close > curr.Open && prev.Close < prev.Open &&
		curr.Open < prev.Close && curr.Close > prev.Open {
		return types.Buy, nil
	}
	if curr.Close < curr.Open && prev.Close > prev.Open &&
		curr.Open > prev.Close && curr.Close < prev.Open {
		return types.Sell, nil
	}
	return types.None, nil
}

// VolumeStrategy confirms the last close direction on a volume spike.
type VolumeStrategy struct {
	Period int
	Factor float64
}

func (s *VolumeStrategy) Name() string { return string(Volume) }

func (s *VolumeStrategy) MinBars() int { return s.Period + 1 }

func (s *VolumeStrategy) Evaluate(c types.Candle) (types.Signal, error) {
	if c.Length() < s.MinBars() {
		return types.None, nil
	}
	if err := types.CheckSeries(c.Close, c.Volume); err != nil {
		return types.None, err
	}
	// the average includes the current bar
	avg := ta.Last(talib.Sma(c.Volume, s.Period))
	if ta.Last(c.Volume) <= avg*s.Factor {
		return types.None, nil
	}
	switch last, prev := ta.Last(c.Close), ta.Prev(c.Close); {
	case last > prev:
		return types.Buy, nil
	case last < prev:
		return types.Sell, nil
	}
	return types.None, nil
}
