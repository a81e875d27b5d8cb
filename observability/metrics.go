package observability

import (
	"fmt"
	"math"
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

// LoanMetrics tracks escrow lifecycle activity applied by the node.
type LoanMetrics struct {
	transitions *prometheus.CounterVec
	fees        prometheus.Counter
	txDuration  *prometheus.HistogramVec
	escrows     prometheus.Counter
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	loanMetricsOnce sync.Once
	loanRegistry    *LoanMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "loan",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "loan",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method, and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "loan",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "loan",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a module request. A zero code means success;
// otherwise code is the JSON-RPC error code written to the response.
func (m *moduleMetrics) Observe(module, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" or
// "unauthorized" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// Loan returns the lazily-initialised escrow metrics registry.
func Loan() *LoanMetrics {
	loanMetricsOnce.Do(func() {
		loanRegistry = &LoanMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "loan",
				Subsystem: "escrow",
				Name:      "transitions_total",
				Help:      "Escrow transactions segmented by type, outcome and failure kind.",
			}, []string{"tx", "outcome", "kind"}),
			fees: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loan",
				Subsystem: "escrow",
				Name:      "fees_collected_total",
				Help:      "Native value forwarded to commission wallets.",
			}),
			txDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "loan",
				Subsystem: "node",
				Name:      "tx_apply_seconds",
				Help:      "Time spent applying a signed transaction.",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			}, []string{"tx"}),
			escrows: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "loan",
				Subsystem: "escrow",
				Name:      "created_total",
				Help:      "Escrows created since the node started.",
			}),
		}
		prometheus.MustRegister(
			loanRegistry.transitions,
			loanRegistry.fees,
			loanRegistry.txDuration,
			loanRegistry.escrows,
		)
	})
	return loanRegistry
}

// RecordTx records the outcome of an applied transaction. kind is the failure
// category label, "none" on success.
func (m *LoanMetrics) RecordTx(tx string, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	if tx == "" {
		tx = "unknown"
	}
	outcome := "success"
	if kind != "" && kind != "none" {
		outcome = "failure"
	} else {
		kind = "none"
	}
	m.transitions.WithLabelValues(tx, outcome, kind).Inc()
	m.txDuration.WithLabelValues(tx).Observe(duration.Seconds())
}

// RecordEscrowCreated bumps the escrow counter.
func (m *LoanMetrics) RecordEscrowCreated() {
	if m == nil {
		return
	}
	m.escrows.Inc()
}

// RecordFee adds a forwarded fee to the running total.
func (m *LoanMetrics) RecordFee(amount *big.Int) {
	if m == nil || amount == nil || amount.Sign() <= 0 {
		return
	}
	m.fees.Add(bigToFloat(amount))
}

func bigToFloat(v *big.Int) float64 {
	if v.IsInt64() {
		return float64(v.Int64())
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	if math.IsInf(f, 0) {
		return math.MaxFloat64
	}
	return f
}
