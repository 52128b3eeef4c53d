package strategy

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/xyths/fxbot/ta"
	"github.com/xyths/fxbot/types"
)

// RSIStrategy buys oversold and sells overbought closes.
type RSIStrategy struct {
	Period     int
	Oversold   float64
	Overbought float64
}

func (s *RSIStrategy) Name() string { return string(RSI) }

func (s *RSIStrategy) MinBars() int { return s.Period + 1 }

func (s *RSIStrategy) Evaluate(c types.Candle) (types.Signal, error) {
	if c.Length() < s.MinBars() {
		return types.None, nil
	}
	if err := types.CheckSeries(c.Close); err != nil {
		return types.None, err
	}
	// no gains and no losses: talib reports 0, which is not an oversold reading
	if ta.Flat(c.Close, s.Period+1) {
		return types.None, nil
	}
	rsi := ta.Last(talib.Rsi(c.Close, s.Period))
	switch {
	case rsi < s.Oversold:
		return types.Buy, nil
	case rsi > s.Overbought:
		return types.Sell, nil
	}
	return types.None, nil
}

// BollingerStrategy fades closes outside the bands.
type BollingerStrategy struct {
	Period int
	Dev    float64
}

func (s *BollingerStrategy) Name() string { return string(Bollinger) }

func (s *BollingerStrategy) MinBars() int { return s.Period + 1 }

func (s *BollingerStrategy) Evaluate(c types.Candle) (types.Signal, error) {
	if c.Length() < s.MinBars() {
		return types.None, nil
	}
	if err := types.CheckSeries(c.Close); err != nil {
		return types.None, err
	}
	// talib's deviation is the population one, the bands use the sample deviation
	dev := s.Dev * math.Sqrt(float64(s.Period)/float64(s.Period-1))
	upper, _, lower := talib.BBands(c.Close, s.Period, dev, dev, talib.SMA)
	last := ta.Last(c.Close)
	switch {
	case last < ta.Last(lower):
		return types.Buy, nil
	case last > ta.Last(upper):
		return types.Sell, nil
	}
	return types.None, nil
}
