// ABOUTME: Prometheus collectors for snapshots, mutations, and subscription failures
// ABOUTME: A nil *Metrics is valid and records nothing
package listview

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts list activity.
type Metrics struct {
	snapshots   prometheus.Counter
	records     prometheus.Gauge
	mutations   *prometheus.CounterVec
	subFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prospekt",
			Name:      "snapshots_total",
			Help:      "Snapshots applied to the local record set.",
		}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "prospekt",
			Name:      "snapshot_records",
			Help:      "Records in the most recent snapshot, archived included.",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prospekt",
			Name:      "mutations_total",
			Help:      "Store mutations issued by workflows.",
		}, []string{"op", "result"}),
		subFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prospekt",
			Name:      "subscription_failures_total",
			Help:      "Subscriptions that failed fatally.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	var err error
	if m.snapshots, err = register(reg, m.snapshots); err != nil {
		return nil, err
	}
	if m.records, err = register(reg, m.records); err != nil {
		return nil, err
	}
	if m.mutations, err = register(reg, m.mutations); err != nil {
		return nil, err
	}
	if m.subFailures, err = register(reg, m.subFailures); err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses an identical collector that is already registered on reg.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}

func (m *Metrics) observeSnapshot(n int) {
	if m == nil {
		return
	}
	m.snapshots.Inc()
	m.records.Set(float64(n))
}

func (m *Metrics) observeMutation(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mutations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) observeSubscriptionFailure() {
	if m == nil {
		return
	}
	m.subFailures.Inc()
}
