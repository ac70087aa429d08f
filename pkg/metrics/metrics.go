// Package metrics exposes Prometheus collectors for the HTTP layer and the metering core.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kariyerai"

var (
	initOnce sync.Once

	httpRequestDuration *prometheus.HistogramVec
	httpRequestTotal    *prometheus.CounterVec

	meteringDenials   *prometheus.CounterVec
	meteringDebits    *prometheus.CounterVec
	meteringCharged   *prometheus.CounterVec
	meteringUnderflow *prometheus.CounterVec
	upstreamFailures  *prometheus.CounterVec

	couponValidations *prometheus.CounterVec
	ordersCreated     *prometheus.CounterVec
)

func initMetrics() {
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration observed at the API layer.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status"},
	)
	httpRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the API.",
		},
		[]string{"method", "route", "status"},
	)
	meteringDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metering",
			Name:      "denials_total",
			Help:      "Metered operations rejected by the balance gate.",
		},
		[]string{"resource", "operation"},
	)
	meteringDebits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metering",
			Name:      "debits_total",
			Help:      "Ledger debits applied, by outcome.",
		},
		[]string{"resource", "operation", "outcome"},
	)
	meteringCharged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metering",
			Name:      "charged_units_total",
			Help:      "Units actually removed from user balances.",
		},
		[]string{"resource"},
	)
	meteringUnderflow = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metering",
			Name:      "debit_underflow_total",
			Help:      "Debits clamped at zero because a concurrent consumption drained the balance.",
		},
		[]string{"resource"},
	)
	upstreamFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metering",
			Name:      "upstream_failures_total",
			Help:      "Metered operations whose external work failed (no debit).",
		},
		[]string{"operation"},
	)
	couponValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "coupon_validations_total",
			Help:      "Coupon validation results by reason (VALID for usable codes).",
		},
		[]string{"result"},
	)
	ordersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "orders_created_total",
			Help:      "Orders created by plan and whether they were free.",
		},
		[]string{"plan", "free"},
	)

	prometheus.MustRegister(
		httpRequestDuration, httpRequestTotal,
		meteringDenials, meteringDebits, meteringCharged, meteringUnderflow, upstreamFailures,
		couponValidations, ordersCreated,
	)
}

func ensure() { initOnce.Do(initMetrics) }

// RecordHTTPRequest observes one handled request.
func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	ensure()
	code := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
	httpRequestTotal.WithLabelValues(method, route, code).Inc()
}

// RecordDenial counts a gate rejection.
func RecordDenial(resource, operation string) {
	ensure()
	meteringDenials.WithLabelValues(resource, operation).Inc()
}

// RecordDebit counts a ledger debit and the units it removed.
func RecordDebit(resource, operation, outcome string, charged int) {
	ensure()
	meteringDebits.WithLabelValues(resource, operation, outcome).Inc()
	if charged > 0 {
		meteringCharged.WithLabelValues(resource).Add(float64(charged))
	}
	if outcome == "underflow" {
		meteringUnderflow.WithLabelValues(resource).Inc()
	}
}

// RecordUpstreamFailure counts a failed external call inside a metered operation.
func RecordUpstreamFailure(operation string) {
	ensure()
	upstreamFailures.WithLabelValues(operation).Inc()
}

// RecordCouponValidation counts a coupon validation outcome.
func RecordCouponValidation(result string) {
	ensure()
	couponValidations.WithLabelValues(result).Inc()
}

// RecordOrder counts a created order.
func RecordOrder(plan string, free bool) {
	ensure()
	ordersCreated.WithLabelValues(plan, strconv.FormatBool(free)).Inc()
}
