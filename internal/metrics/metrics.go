// Package metrics exposes Prometheus instrumentation for event processing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "liquidity_ledger"

// Metrics holds the engine and pipeline collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	EventsHandled   *prometheus.CounterVec
	EventsSkipped   *prometheus.CounterVec
	PriceMisses     prometheus.Counter
	NativePriceUSD  prometheus.Gauge
	LastBlock       prometheus.Gauge
	CommitDuration  prometheus.Histogram
	EntitiesWritten prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_handled_total",
			Help:      "Pool events applied, by event type",
		}, []string{"event"}),
		EventsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "events_skipped_total",
			Help:      "Pool events not applied, by reason",
		}, []string{"reason"}),
		PriceMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "price_misses_total",
			Help:      "Token price lookups that found no qualifying pool",
		}),
		NativePriceUSD: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "native_price_usd",
			Help:      "Reference currency price in USD",
		}),
		LastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "last_block",
			Help:      "Block number of the last applied event",
		}),
		CommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "commit_duration_seconds",
			Help:      "Unit of work commit latency",
			Buckets:   prometheus.DefBuckets,
		}),
		EntitiesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "entities_written_total",
			Help:      "Entities written by committed units",
		}),
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) EventHandled(event string) {
	if m == nil {
		return
	}
	m.EventsHandled.WithLabelValues(event).Inc()
}

func (m *Metrics) EventSkipped(reason string) {
	if m == nil {
		return
	}
	m.EventsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) PriceMiss() {
	if m == nil {
		return
	}
	m.PriceMisses.Inc()
}

func (m *Metrics) SetNativePrice(price float64) {
	if m == nil {
		return
	}
	m.NativePriceUSD.Set(price)
}

func (m *Metrics) SetLastBlock(block uint64) {
	if m == nil {
		return
	}
	m.LastBlock.Set(float64(block))
}

// ObserveCommit records a unit commit of n entities.
func (m *Metrics) ObserveCommit(started time.Time, n int) {
	if m == nil {
		return
	}
	m.CommitDuration.Observe(time.Since(started).Seconds())
	m.EntitiesWritten.Add(float64(n))
}
