package strategy

import (
	"context"
	"fmt"

	"github.com/xyths/fxbot/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine evaluates a fixed list of strategies over the same window.
type Engine struct {
	strategies []Strategy
	parallel   bool

	Sugar *zap.SugaredLogger
}

func NewEngine(sugar *zap.SugaredLogger, parallel bool, strategies ...Strategy) *Engine {
	return &Engine{
		strategies: strategies,
		parallel:   parallel,
		Sugar:      sugar,
	}
}

func (e *Engine) Strategies() []Strategy {
	return e.strategies
}

// Evaluate runs every strategy and collects one Result per strategy name.
// A failing or panicking strategy yields an error marker, the rest still run.
// Strategies not yet started when ctx is done are marked as failed.
func (e *Engine) Evaluate(ctx context.Context, c types.Candle) SignalSet {
	results := make([]Result, len(e.strategies))
	if e.parallel {
		var g errgroup.Group
		for i, s := range e.strategies {
			i, s := i, s
			g.Go(func() error {
				results[i] = evaluateCtx(ctx, s, c)
				return nil
			})
		}
		// every goroutine returns nil, faults are carried in results
		_ = g.Wait()
	} else {
		for i, s := range e.strategies {
			results[i] = evaluateCtx(ctx, s, c)
		}
	}

	set := make(SignalSet, len(e.strategies))
	for i, s := range e.strategies {
		set[s.Name()] = results[i]
		if results[i].Failed() {
			e.Sugar.Warnf("strategy %s: %s", s.Name(), results[i].Err)
		} else {
			e.Sugar.Debugf("strategy %s: %s", s.Name(), results[i].Signal)
		}
	}
	return set
}

func evaluateCtx(ctx context.Context, s Strategy, c types.Candle) Result {
	if err := ctx.Err(); err != nil {
		return Result{Err: &StrategyFault{Strategy: s.Name(), Reason: err.Error()}}
	}
	return evaluate(s, c)
}

func evaluate(s Strategy, c types.Candle) (r Result) {
	defer func() {
		if p := recover(); p != nil {
			r = Result{Err: &StrategyFault{Strategy: s.Name(), Reason: fmt.Sprintf("panic: %v", p)}}
		}
	}()
	signal, err := s.Evaluate(c)
	if err != nil {
		return Result{Err: &StrategyFault{Strategy: s.Name(), Reason: err.Error()}}
	}
	return Result{Signal: signal}
}
