package decider

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xyths/fxbot/strategy"
	"github.com/xyths/fxbot/types"
)

func set(signals ...types.Signal) strategy.SignalSet {
	s := make(strategy.SignalSet)
	for i, sig := range signals {
		s[string(rune('a'+i))] = strategy.Result{Signal: sig}
	}
	return s
}

func TestMajority_Decide(t *testing.T) {
	fault := strategy.Result{Err: &strategy.StrategyFault{Strategy: "x", Reason: "nan"}}
	withFaults := set(types.Buy, types.Sell)
	withFaults["f1"] = fault
	withFaults["f2"] = fault
	oneFaultBuy := set(types.Buy)
	oneFaultBuy["f1"] = fault

	tests := []struct {
		name string
		set  strategy.SignalSet
		want types.Decision
	}{
		{"empty", strategy.SignalSet{}, types.None},
		{"all none", set(types.None, types.None, types.None), types.None},
		{"buy majority", set(types.Buy, types.Buy, types.Sell, types.None), types.Buy},
		{"sell majority", set(types.Sell, types.Sell, types.Buy), types.Sell},
		{"single buy", set(types.Buy, types.None, types.None), types.Buy},
		{"tie", set(types.Buy, types.Sell, types.Buy, types.Sell), types.None},
		{"faults abstain on tie", withFaults, types.None},
		{"faults abstain", oneFaultBuy, types.Buy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Majority{}.Decide(tt.set))
		})
	}
}

func TestMajority_Property(t *testing.T) {
	for buys := 0; buys <= 4; buys++ {
		for sells := 0; sells <= 4; sells++ {
			var sigs []types.Signal
			for i := 0; i < buys; i++ {
				sigs = append(sigs, types.Buy)
			}
			for i := 0; i < sells; i++ {
				sigs = append(sigs, types.Sell)
			}
			sigs = append(sigs, types.None)
			got := Majority{}.Decide(set(sigs...))
			switch {
			case buys > sells:
				require.Equal(t, types.Buy, got, "%d-%d", buys, sells)
			case sells > buys:
				require.Equal(t, types.Sell, got, "%d-%d", buys, sells)
			default:
				require.Equal(t, types.None, got, "%d-%d", buys, sells)
			}
		}
	}
}

func TestQuorum_Decide(t *testing.T) {
	q := Quorum{Min: 3}
	require.Equal(t, types.None, q.Decide(set(types.Buy, types.Buy, types.Sell)))
	require.Equal(t, types.Buy, q.Decide(set(types.Buy, types.Buy, types.Buy, types.Sell)))
	require.Equal(t, types.Sell, q.Decide(set(types.Sell, types.Sell, types.Sell)))
	require.Equal(t, types.None, q.Decide(set(types.Sell, types.Sell, types.Sell, types.Buy, types.Buy, types.Buy)))
}

func TestNew(t *testing.T) {
	a, err := New("", 0)
	require.NoError(t, err)
	require.IsType(t, Majority{}, a)

	a, err = New(NameQuorum, 4)
	require.NoError(t, err)
	require.Equal(t, Quorum{Min: 4}, a)

	_, err = New(NameQuorum, 0)
	require.Error(t, err)
	_, err = New("weighted", 0)
	require.Error(t, err)
}
