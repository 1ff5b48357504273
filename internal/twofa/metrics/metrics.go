// Package metrics holds the Prometheus instruments for the 2FA service.
// A nil *Metrics is valid and records nothing, which keeps tests and tools
// that do not care about metrics free of registry plumbing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentinel"

type Metrics struct {
	registry prometheus.Gatherer

	SetupsTotal        *prometheus.CounterVec
	VerificationsTotal *prometheus.CounterVec
	ResendsTotal       *prometheus.CounterVec
	DeliveriesTotal    *prometheus.CounterVec
	DisablesTotal      *prometheus.CounterVec
	BackupCodesTotal   *prometheus.CounterVec
	RevocationsTotal   *prometheus.CounterVec
	SweptTotal         *prometheus.CounterVec
	DeliveryDuration   *prometheus.HistogramVec
}

// New registers every instrument on reg. Pass prometheus.NewRegistry() in
// tests so runs do not collide on the global registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SetupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "setups_total",
			Help:      "2FA setups started by channel and result.",
		}, []string{"channel", "result"}),
		VerificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Code verifications by channel, purpose and outcome.",
		}, []string{"channel", "purpose", "outcome"}),
		ResendsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resends_total",
			Help:      "Resend requests by channel and result.",
		}, []string{"channel", "result"}),
		DeliveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Outbound code deliveries by channel and result.",
		}, []string{"channel", "result"}),
		DisablesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disables_total",
			Help:      "Method disables by channel (ALL for disable-all).",
		}, []string{"channel"}),
		BackupCodesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backup_codes_total",
			Help:      "Backup code batch generations and redemptions.",
		}, []string{"event"}),
		RevocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_revocations_total",
			Help:      "Device session revocations by result.",
		}, []string{"result"}),
		SweptTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_swept_total",
			Help:      "Records removed by housekeeping.",
		}, []string{"kind"}),
		DeliveryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent handing a code to the delivery provider.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) Setup(channel string, err error) {
	if m == nil {
		return
	}
	m.SetupsTotal.WithLabelValues(channel, resultLabel(err)).Inc()
}

func (m *Metrics) Verification(channel, purpose, outcome string) {
	if m == nil {
		return
	}
	m.VerificationsTotal.WithLabelValues(channel, purpose, outcome).Inc()
}

// Resend records a resend; result is "ok", "error" or a denial reason.
func (m *Metrics) Resend(channel, result string) {
	if m == nil {
		return
	}
	m.ResendsTotal.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) Delivery(channel string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(channel, resultLabel(err)).Inc()
	m.DeliveryDuration.WithLabelValues(channel).Observe(seconds)
}

func (m *Metrics) Disable(channel string) {
	if m == nil {
		return
	}
	m.DisablesTotal.WithLabelValues(channel).Inc()
}

func (m *Metrics) BackupCodes(event string) {
	if m == nil {
		return
	}
	m.BackupCodesTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) Revocation(err error) {
	if m == nil {
		return
	}
	m.RevocationsTotal.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) Swept(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SweptTotal.WithLabelValues(kind).Add(float64(n))
}
