package strategy

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/xyths/fxbot/types"
)

// Strategy turns a price window into a directional opinion.
// Implementations are pure: the same window always yields the same signal.
type Strategy interface {
	Name() string
	// MinBars is the shortest window the strategy forms an opinion on.
	// Shorter windows evaluate to types.None.
	MinBars() int
	Evaluate(c types.Candle) (types.Signal, error)
}

type Kind string

const (
	EMACross    Kind = "ema"
	RSI         Kind = "rsi"
	MACD        Kind = "macd"
	Bollinger   Kind = "bollinger"
	ADX         Kind = "adx"
	Breakout    Kind = "breakout"
	PriceAction Kind = "price_action"
	Volume      Kind = "volume"
)

// All lists every strategy kind, in registration order.
var All = []Kind{EMACross, RSI, MACD, Bollinger, ADX, Breakout, PriceAction, Volume}

// Params holds the tunable periods and thresholds, zero means default.
type Params struct {
	EMAFast       int     `json:"emaFast"`
	EMASlow       int     `json:"emaSlow"`
	RSIPeriod     int     `json:"rsiPeriod"`
	RSIOversold   float64 `json:"rsiOversold"`
	RSIOverbought float64 `json:"rsiOverbought"`
	MACDFast      int     `json:"macdFast"`
	MACDSlow      int     `json:"macdSlow"`
	MACDSignal    int     `json:"macdSignal"`
	BBPeriod      int     `json:"bbPeriod"`
	BBDev         float64 `json:"bbDev"`
	ADXPeriod     int     `json:"adxPeriod"`
	ADXStrength   float64 `json:"adxStrength"`
	BreakoutBars  int     `json:"breakoutBars"`
	VolumeBars    int     `json:"volumeBars"`
	VolumeFactor  float64 `json:"volumeFactor"`
}

func DefaultParams() Params {
	return Params{
		EMAFast:       12,
		EMASlow:       26,
		RSIPeriod:     14,
		RSIOversold:   30,
		RSIOverbought: 70,
		MACDFast:      12,
		MACDSlow:      26,
		MACDSignal:    9,
		BBPeriod:      20,
		BBDev:         2,
		ADXPeriod:     14,
		ADXStrength:   25,
		BreakoutBars:  20,
		VolumeBars:    20,
		VolumeFactor:  1.5,
	}
}

// Merge fills zero fields of p from DefaultParams.
func (p Params) Merge() Params {
	d := DefaultParams()
	setInt := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}
	setFloat := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	setInt(&p.EMAFast, d.EMAFast)
	setInt(&p.EMASlow, d.EMASlow)
	setInt(&p.RSIPeriod, d.RSIPeriod)
	setFloat(&p.RSIOversold, d.RSIOversold)
	setFloat(&p.RSIOverbought, d.RSIOverbought)
	setInt(&p.MACDFast, d.MACDFast)
	setInt(&p.MACDSlow, d.MACDSlow)
	setInt(&p.MACDSignal, d.MACDSignal)
	setInt(&p.BBPeriod, d.BBPeriod)
	setFloat(&p.BBDev, d.BBDev)
	setInt(&p.ADXPeriod, d.ADXPeriod)
	setFloat(&p.ADXStrength, d.ADXStrength)
	setInt(&p.BreakoutBars, d.BreakoutBars)
	setInt(&p.VolumeBars, d.VolumeBars)
	setFloat(&p.VolumeFactor, d.VolumeFactor)
	return p
}

// New builds the strategy of the given kind.
func New(kind Kind, p Params) (Strategy, error) {
	p = p.Merge()
	switch kind {
	case EMACross:
		return &EMACrossStrategy{Fast: p.EMAFast, Slow: p.EMASlow}, nil
	case RSI:
		return &RSIStrategy{Period: p.RSIPeriod, Oversold: p.RSIOversold, Overbought: p.RSIOverbought}, nil
	case MACD:
		return &MACDStrategy{Fast: p.MACDFast, Slow: p.MACDSlow, Signal: p.MACDSignal}, nil
	case Bollinger:
		if p.BBPeriod < 2 {
			return nil, errors.Errorf("bollinger period must be at least 2, got %d", p.BBPeriod)
		}
		return &BollingerStrategy{Period: p.BBPeriod, Dev: p.BBDev}, nil
	case ADX:
		return &ADXStrategy{Period: p.ADXPeriod, Strength: p.ADXStrength}, nil
	case Breakout:
		return &BreakoutStrategy{Period: p.BreakoutBars}, nil
	case PriceAction:
		return &PriceActionStrategy{}, nil
	case Volume:
		return &VolumeStrategy{Period: p.VolumeBars, Factor: p.VolumeFactor}, nil
	default:
		return nil, errors.Errorf("unknown strategy %q", kind)
	}
}

// Build creates strategies for the given names, every kind when names is empty.
func Build(names []string, p Params) ([]Strategy, error) {
	kinds := All
	if len(names) > 0 {
		kinds = make([]Kind, 0, len(names))
		for _, n := range names {
			kinds = append(kinds, Kind(n))
		}
	}
	var list []Strategy
	seen := make(map[Kind]bool)
	for _, k := range kinds {
		if seen[k] {
			return nil, errors.Errorf("duplicate strategy %q", k)
		}
		seen[k] = true
		s, err := New(k, p)
		if err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, nil
}

// StrategyFault marks a strategy that failed to form an opinion.
type StrategyFault struct {
	Strategy string
	Reason   string
}

func (f *StrategyFault) Error() string {
	return fmt.Sprintf("strategy %s failed: %s", f.Strategy, f.Reason)
}

// Result is one entry of a SignalSet: a signal, or an error marker when Err is set.
type Result struct {
	Signal types.Signal
	Err    error
}

func (r Result) Failed() bool {
	return r.Err != nil
}

func (r Result) String() string {
	if r.Err != nil {
		return "ERROR(" + r.Err.Error() + ")"
	}
	return r.Signal.String()
}

// SignalSet maps strategy name to its result for one window.
type SignalSet map[string]Result

// Faults returns the error markers of the set.
func (s SignalSet) Faults() []error {
	var errs []error
	for _, r := range s {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}
