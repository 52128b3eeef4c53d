// Package metrics exposes trading counters in the Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Cycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fxbot_cycles_total", Help: "Scheduler cycles by outcome"},
		[]string{"result"},
	)
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fxbot_decisions_total", Help: "Arbitrated decisions"},
		[]string{"decision"},
	)
	Signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fxbot_signals_total", Help: "Strategy signals, error for failed evaluations"},
		[]string{"strategy", "signal"},
	)
	Orders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fxbot_orders_total", Help: "Order submissions by kind, side and result"},
		[]string{"kind", "side", "result"},
	)
	FillRejects = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fxbot_fill_rejects_total", Help: "Opens rejected per filling mode"},
		[]string{"mode"},
	)
	Faults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fxbot_faults_total", Help: "Cycle faults by kind"},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(Cycles, Decisions, Signals, Orders, FillRejects, Faults)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
