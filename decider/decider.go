// Package decider resolves the opinions of a strategy set into one decision.
package decider

import (
	"github.com/pkg/errors"
	"github.com/xyths/fxbot/strategy"
	"github.com/xyths/fxbot/types"
)

// Arbiter is stateless: the decision depends on the given set only.
type Arbiter interface {
	Decide(set strategy.SignalSet) types.Decision
}

const (
	NameMajority = "majority"
	NameQuorum   = "quorum"
)

// New returns the arbiter registered under name, majority when name is empty.
func New(name string, quorum int) (Arbiter, error) {
	switch name {
	case "", NameMajority:
		return Majority{}, nil
	case NameQuorum:
		if quorum <= 0 {
			return nil, errors.Errorf("quorum must be positive, got %d", quorum)
		}
		return Quorum{Min: quorum}, nil
	default:
		return nil, errors.Errorf("unknown arbiter %q", name)
	}
}

// Count tallies Buy and Sell votes, one per strategy.
// None and error markers abstain.
func Count(set strategy.SignalSet) (buy, sell int) {
	for _, r := range set {
		if r.Failed() {
			continue
		}
		switch r.Signal {
		case types.Buy:
			buy++
		case types.Sell:
			sell++
		}
	}
	return
}

// Majority picks the side with strictly more votes, None on a tie.
type Majority struct{}

func (Majority) Decide(set strategy.SignalSet) types.Decision {
	buy, sell := Count(set)
	switch {
	case buy > sell:
		return types.Buy
	case sell > buy:
		return types.Sell
	}
	return types.None
}

// Quorum is Majority that also requires Min votes on the winning side.
type Quorum struct {
	Min int
}

func (q Quorum) Decide(set strategy.SignalSet) types.Decision {
	d := Majority{}.Decide(set)
	buy, sell := Count(set)
	if (d == types.Buy && buy < q.Min) || (d == types.Sell && sell < q.Min) {
		return types.None
	}
	return d
}
