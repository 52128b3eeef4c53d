package strategy

import (
	"github.com/markcheno/go-talib"
	"github.com/xyths/fxbot/ta"
	"github.com/xyths/fxbot/types"
)

// EMACrossStrategy signals when the fast EMA of close crosses the slow one.
type EMACrossStrategy struct {
	Fast int
	Slow int
}

func (s *EMACrossStrategy) Name() string { return string(EMACross) }

// MinBars covers the slow EMA warm-up plus the previous bar of the cross.
func (s *EMACrossStrategy) MinBars() int { return s.Slow + 1 }

func (s *EMACrossStrategy) Evaluate(c types.Candle) (types.Signal, error) {
	if c.Length() < s.MinBars() {
		return types.None, nil
	}
	if err := types.CheckSeries(c.Close); err != nil {
		return types.None, err
	}
	fast := talib.Ema(c.Close, s.Fast)
	slow := talib.Ema(c.Close, s.Slow)
	switch {
	case ta.CrossOver(fast, slow):
		return types.Buy, nil
	case ta.CrossUnder(fast, slow):
		return types.Sell, nil
	}
	return types.None, nil
}

// MACDStrategy signals when the MACD line crosses its signal line.
type MACDStrategy struct {
	Fast   int
	Slow   int
	Signal int
}

func (s *MACDStrategy) Name() string { return string(MACD) }

func (s *MACDStrategy) MinBars() int { return s.Slow + s.Signal }

func (s *MACDStrategy) Evaluate(c types.Candle) (types.Signal, error) {
	if c.Length() < s.MinBars() {
		return types.None, nil
	}
	if err := types.CheckSeries(c.Close); err != nil {
		return types.None, err
	}
	macd, signal, _ := talib.Macd(c.Close, s.Fast, s.Slow, s.Signal)
	switch {
	case ta.CrossOver(macd, signal):
		return types.Buy, nil
	case ta.CrossUnder(macd, signal):
		return types.Sell, nil
	}
	return types.None, nil
}

// ADXStrategy follows the dominant directional index once the trend is strong enough.
type ADXStrategy struct {
	Period   int
	Strength float64
}

func (s *ADXStrategy) Name() string { return string(ADX) }

// MinBars is the ADX lookback (two smoothing passes) plus the current bar.
func (s *ADXStrategy) MinBars() int { return 2 * s.Period }

func (s *ADXStrategy) Evaluate(c types.Candle) (types.Signal, error) {
	if c.Length() < s.MinBars() {
		return types.None, nil
	}
	if err := types.CheckSeries(c.High, c.Low, c.Close); err != nil {
		return types.None, err
	}
	adx := ta.Last(talib.Adx(c.High, c.Low, c.Close, s.Period))
	plus := ta.Last(talib.PlusDI(c.High, c.Low, c.Close, s.Period))
	minus := ta.Last(talib.MinusDI(c.High, c.Low, c.Close, s.Period))
	if !ta.Finite(adx, plus, minus) || adx <= s.Strength {
		return types.None, nil
	}
	switch {
	case plus > minus:
		return types.Buy, nil
	case minus > plus:
		return types.Sell, nil
	}
	return types.None, nil
}
