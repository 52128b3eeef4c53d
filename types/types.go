package types

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Signal is a directional opinion, produced by a strategy or by the arbiter.
type Signal int

const (
	None Signal = 0
	Buy  Signal = 1
	Sell Signal = -1
)

// Decision is the arbitrated signal of one cycle.
type Decision = Signal

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

// Direction maps a non-None signal to the position it would open.
func (s Signal) Direction() Direction {
	switch s {
	case Buy:
		return Long
	case Sell:
		return Short
	default:
		return Flat
	}
}

type Direction int

const (
	Flat  Direction = 0
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Opposes reports whether a position in direction d must be closed before acting on s.
func (d Direction) Opposes(s Signal) bool {
	return d != Flat && s != None && d != s.Direction()
}

func (d Direction) Opposite() Direction {
	return -d
}

type Bar struct {
	Timestamp int64 // unix seconds
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Candle is a column-oriented OHLCV window, oldest first.
type Candle struct {
	Timestamp []int64
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
}

func NewCandle(capacity int) Candle {
	return Candle{
		Timestamp: make([]int64, 0, capacity),
		Open:      make([]float64, 0, capacity),
		High:      make([]float64, 0, capacity),
		Low:       make([]float64, 0, capacity),
		Close:     make([]float64, 0, capacity),
		Volume:    make([]float64, 0, capacity),
	}
}

func (c Candle) Length() int {
	return len(c.Close)
}

func (c *Candle) Append(b Bar) {
	c.Timestamp = append(c.Timestamp, b.Timestamp)
	c.Open = append(c.Open, b.Open)
	c.High = append(c.High, b.High)
	c.Low = append(c.Low, b.Low)
	c.Close = append(c.Close, b.Close)
	c.Volume = append(c.Volume, b.Volume)
}

func (c Candle) Bar(i int) Bar {
	return Bar{
		Timestamp: c.Timestamp[i],
		Open:      c.Open[i],
		High:      c.High[i],
		Low:       c.Low[i],
		Close:     c.Close[i],
		Volume:    c.Volume[i],
	}
}

// Tail returns the last n bars, or the whole window when it is shorter.
func (c Candle) Tail(n int) Candle {
	l := c.Length()
	if n >= l {
		return c
	}
	from := l - n
	return Candle{
		Timestamp: c.Timestamp[from:],
		Open:      c.Open[from:],
		High:      c.High[from:],
		Low:       c.Low[from:],
		Close:     c.Close[from:],
		Volume:    c.Volume[from:],
	}
}

// CheckSeries fails when the given columns differ in length or hold NaN/Inf.
func CheckSeries(series ...[]float64) error {
	for i, s := range series {
		if len(s) != len(series[0]) {
			return errors.Errorf("column %d has %d values, want %d", i, len(s), len(series[0]))
		}
		for j, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Errorf("column %d has invalid value %v at %d", i, v, j)
			}
		}
	}
	return nil
}

// Symbol is the broker's instrument description.
type Symbol struct {
	Name         string  `json:"name"`
	Digits       int32   `json:"digits"`
	Point        float64 `json:"point"`
	ContractSize float64 `json:"contractSize"`
	VolumeMin    float64 `json:"volumeMin"`
	VolumeMax    float64 `json:"volumeMax"`
}

type Tick struct {
	Time int64
	Bid  float64
	Ask  float64
}

// Position mirrors one open broker position.
type Position struct {
	Ticket    uint64
	Symbol    string
	Direction Direction
	Volume    float64
	Entry     float64
	SL        float64
	TP        float64
	Time      int64
}

func (p Position) String() string {
	return fmt.Sprintf("#%d %s %s %.2f @ %v (SL %v, TP %v)", p.Ticket, p.Direction, p.Symbol, p.Volume, p.Entry, p.SL, p.TP)
}

// FillMode is the broker-side filling policy of a market order.
type FillMode int

const (
	FillReturn FillMode = iota
	FillIOC
	FillFOK
)

// FillModes is the order in which opens try filling policies.
var FillModes = []FillMode{FillReturn, FillIOC, FillFOK}

func (m FillMode) String() string {
	switch m {
	case FillReturn:
		return "RETURN"
	case FillIOC:
		return "IOC"
	case FillFOK:
		return "FOK"
	default:
		return fmt.Sprintf("FillMode(%d)", int(m))
	}
}

type OrderRequest struct {
	Symbol    string
	Direction Direction
	Volume    float64
	Price     float64
	SL        float64
	TP        float64
	Deviation int
	Magic     int64
	Comment   string
	FillMode  FillMode
	// Position is the ticket being closed, zero for opens.
	Position uint64
}

// broker return codes
const (
	RetcodeRequote     uint32 = 10004
	RetcodeReject      uint32 = 10006
	RetcodePlaced      uint32 = 10008
	RetcodeDone        uint32 = 10009
	RetcodeNoMoney     uint32 = 10019
	RetcodeInvalidFill uint32 = 10030
)

type OrderResult struct {
	Retcode uint32
	OrderID uint64
	Deal    uint64
	Volume  float64
	Price   float64
	SL      float64
	TP      float64
	Comment string
}

func (r OrderResult) Success() bool {
	return r.Retcode == RetcodeDone || r.Retcode == RetcodePlaced
}

var timeframes = map[string]time.Duration{
	"M1":  time.Minute,
	"M5":  5 * time.Minute,
	"M15": 15 * time.Minute,
	"M30": 30 * time.Minute,
	"H1":  time.Hour,
	"H4":  4 * time.Hour,
	"D1":  24 * time.Hour,
}

// TimeframeDuration converts a broker timeframe name such as "M5" to its bar length.
func TimeframeDuration(tf string) (time.Duration, error) {
	d, ok := timeframes[tf]
	if !ok {
		return 0, errors.Errorf("unknown timeframe %q", tf)
	}
	return d, nil
}

const TimeLayout = "2006-01-02 15:04:05"

func TimestampToDate(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(TimeLayout)
}
