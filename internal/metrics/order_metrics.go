package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons used as the reason label.
const (
	ReasonInvalid      = "invalid"
	ReasonNotFound     = "not_found"
	ReasonInsufficient = "insufficient_spaces"
	ReasonDuplicate    = "duplicate"
	ReasonError        = "error"
)

// OrderMetrics holds the collectors for the order workflow.
type OrderMetrics struct {
	ordersPlaced   prometheus.Counter
	ordersRejected *prometheus.CounterVec
	spacesReserved prometheus.Counter
	compensations  *prometheus.CounterVec
	orderDuration  prometheus.Histogram
}

func NewOrderMetrics(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersPlaced: registerCounter(registerer, prometheus.CounterOpts{
			Name: "lesson_shop_orders_placed_total",
			Help: "Total number of orders persisted",
		}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "lesson_shop_orders_rejected_total",
			Help: "Total number of orders rejected, by reason",
		}, []string{"reason"}),
		spacesReserved: registerCounter(registerer, prometheus.CounterOpts{
			Name: "lesson_shop_spaces_reserved_total",
			Help: "Total number of lesson spaces reserved by placed orders",
		}),
		compensations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "lesson_shop_reservation_releases_total",
			Help: "Total number of reservation releases after a failed order, by outcome",
		}, []string{"outcome"}),
		orderDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "lesson_shop_order_duration_seconds",
			Help:    "Duration of order placement in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *OrderMetrics) RecordPlaced(spaces int) {
	m.ordersPlaced.Inc()
	m.spacesReserved.Add(float64(spaces))
}

func (m *OrderMetrics) RecordRejected(reason string) {
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// RecordCompensation counts one released line item.
func (m *OrderMetrics) RecordCompensation(ok bool) {
	outcome := "released"
	if !ok {
		outcome = "failed"
	}
	m.compensations.WithLabelValues(outcome).Inc()
}

func (m *OrderMetrics) ObserveDuration(d time.Duration) {
	m.orderDuration.Observe(d.Seconds())
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
