// Package metrics exposes prometheus collectors for fhevm instance
// construction, the key material cache and decryption signatures.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/haimbb47/SkillForge/fhevmClient/session"
)

const namespace = "skillforge"

// Outcome labels for construction attempts.
const (
	OutcomeReady   = "ready"
	OutcomeError   = "error"
	OutcomeAborted = "aborted"
)

// Metrics implements keycache.Observer and decryptsig.Observer.
type Metrics struct {
	constructions     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	keyLookups        *prometheus.CounterVec
	sigLookups        *prometheus.CounterVec
	sigCreations      *prometheus.CounterVec
	ready             prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh registry so that tests never collide on the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		constructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instance_constructions_total",
			Help:      "Instance construction attempts by outcome.",
		}, []string{"outcome"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "construction_status_total",
			Help:      "Construction progress notifications by status.",
		}, []string{"status"}),
		keyLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_material_lookups_total",
			Help:      "Key material cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		sigLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decryption_signature_lookups_total",
			Help:      "Stored decryption signature lookups by result.",
		}, []string{"result"}),
		sigCreations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decryption_signature_creations_total",
			Help:      "Decryption signature signing attempts by result.",
		}, []string{"result"}),
		ready: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instance_ready",
			Help:      "1 when an fhevm instance is ready for use.",
		}),
	}

	reg.MustRegister(
		m.constructions,
		m.statusTransitions,
		m.keyLookups,
		m.sigLookups,
		m.sigCreations,
		m.ready,
	)
	return m
}

func (m *Metrics) ConstructionFinished(outcome string) {
	m.constructions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StatusChanged(s session.Status) {
	m.statusTransitions.WithLabelValues(string(s)).Inc()
}

func (m *Metrics) SetReady(ready bool) {
	if ready {
		m.ready.Set(1)
		return
	}
	m.ready.Set(0)
}

func (m *Metrics) KeyMaterialLookup(kind string, hit bool) {
	m.keyLookups.WithLabelValues(kind, hitLabel(hit)).Inc()
}

func (m *Metrics) SignatureLookup(hit bool) {
	m.sigLookups.WithLabelValues(hitLabel(hit)).Inc()
}

func (m *Metrics) SignatureCreated(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.sigCreations.WithLabelValues(result).Inc()
}

func hitLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
