package executor

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// lots are traded in steps of 0.01
const volumePrecision = 2

type SizingError struct {
	Reason string
}

func (e *SizingError) Error() string {
	return "sizing error: " + e.Reason
}

// SizeVolume risks riskPct percent of capital over a stop of slPips points.
func SizeVolume(capital, riskPct, slPips, contractSize, point float64) (float64, error) {
	pipValue := decimal.NewFromFloat(contractSize).Mul(decimal.NewFromFloat(point))
	if !pipValue.IsPositive() {
		return 0, &SizingError{Reason: "pip value is zero"}
	}
	stop := decimal.NewFromFloat(slPips)
	if !stop.IsPositive() {
		return 0, &SizingError{Reason: "stop-loss distance is zero"}
	}
	risk := decimal.NewFromFloat(capital).Mul(decimal.NewFromFloat(riskPct)).Div(decimal.NewFromInt(100))
	volume := risk.Div(stop.Mul(pipValue)).Round(volumePrecision)
	if !volume.IsPositive() {
		return 0, &SizingError{Reason: "volume " + volume.String() + " rounds below one step"}
	}
	f, _ := volume.Float64()
	return f, nil
}

// SizeVolume sizes for the executor's symbol, within its volume limits.
// A volume above VolumeMax is capped, one below VolumeMin is a SizingError. Zero limits are ignored.
func (e *Executor) SizeVolume(capital, riskPct, slPips float64) (float64, error) {
	volume, err := SizeVolume(capital, riskPct, slPips, e.symbol.ContractSize, e.symbol.Point)
	if err != nil {
		return 0, err
	}
	if lo := e.symbol.VolumeMin; lo > 0 && volume < lo {
		return 0, &SizingError{Reason: fmt.Sprintf("volume %v below the minimum %v", volume, lo)}
	}
	if hi := e.symbol.VolumeMax; hi > 0 && volume > hi {
		e.Sugar.Warnf("volume %v capped to the maximum %v", volume, hi)
		volume = hi
	}
	return volume, nil
}
