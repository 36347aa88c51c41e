package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
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

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	mintMetricsOnce sync.Once
	mintRegistry    *MintMetrics
)

// ModuleMetrics returns the lazily-initialised module metrics registry used to
// record RPC module activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dropgate",
				Subsystem: "module",
				Name:      "requests_total",
				Help:      "Total JSON-RPC module requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dropgate",
				Subsystem: "module",
				Name:      "errors_total",
				Help:      "Total JSON-RPC module errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "dropgate",
				Subsystem: "module",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC module handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dropgate",
				Subsystem: "module",
				Name:      "throttles_total",
				Help:      "Count of module requests rejected due to throttling policies.",
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

// Observe records the outcome of a module request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
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
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" so dashboards
// and alerts remain consistent.
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

// MintMetrics bundles collectors tracking mint authorization outcomes and
// settled value.
type MintMetrics struct {
	mints        *prometheus.CounterVec
	units        *prometheus.CounterVec
	valueSettled *prometheus.CounterVec
	pauseEngaged prometheus.Gauge
}

// Mint returns the singleton metrics registry for the drop engine.
func Mint() *MintMetrics {
	mintMetricsOnce.Do(func() {
		mintRegistry = &MintMetrics{
			mints: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dropgate",
				Subsystem: "mint",
				Name:      "requests_total",
				Help:      "Count of mint requests segmented by stage kind and outcome.",
			}, []string{"kind", "outcome"}),
			units: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dropgate",
				Subsystem: "mint",
				Name:      "units_total",
				Help:      "Count of token units minted segmented by stage kind.",
			}, []string{"kind"}),
			valueSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "dropgate",
				Subsystem: "mint",
				Name:      "value_settled",
				Help:      "Cumulative payment value settled through completed mints, in base units.",
			}, []string{"kind"}),
			pauseEngaged: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "dropgate",
				Subsystem: "mint",
				Name:      "pause_engaged",
				Help:      "Indicates whether the drop module pause guard is active (1) or not (0).",
			}),
		}
		prometheus.MustRegister(
			mintRegistry.mints,
			mintRegistry.units,
			mintRegistry.valueSettled,
			mintRegistry.pauseEngaged,
		)
	})
	return mintRegistry
}

// ObserveMint records a mint attempt and, when it succeeded, the units and
// value it settled.
func (m *MintMetrics) ObserveMint(kind string, quantity uint64, cost *big.Int, err error) {
	if m == nil {
		return
	}
	label := labelKind(kind)
	if err != nil {
		m.mints.WithLabelValues(label, "error").Inc()
		return
	}
	m.mints.WithLabelValues(label, "success").Inc()
	m.units.WithLabelValues(label).Add(float64(quantity))
	m.valueSettled.WithLabelValues(label).Add(bigToFloat(cost))
}

// SetPause toggles the pause_engaged gauge.
func (m *MintMetrics) SetPause(engaged bool) {
	if m == nil {
		return
	}
	if engaged {
		m.pauseEngaged.Set(1)
		return
	}
	m.pauseEngaged.Set(0)
}

func labelKind(kind string) string {
	trimmed := strings.TrimSpace(kind)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}

func bigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		// Guard against NaN/Inf when conversion fails.
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
