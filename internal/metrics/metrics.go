package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempo_deliveries_total",
			Help: "Alerts delivered, by channel (push, overlay)",
		},
		[]string{"channel"},
	)

	DedupSuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempo_dedup_suppressed_total",
			Help: "Occurrence deliveries suppressed by the dedup guard",
		},
	)

	SweepCatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tempo_sweep_catches_total",
			Help: "Reminders delivered by the sweep checker instead of a one-shot timer",
		},
	)

	TonesRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tempo_tones_rendered_total",
			Help: "Alert tones rendered, by preset",
		},
		[]string{"preset"},
	)

	RemindersArmed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tempo_reminders_armed",
			Help: "One-shot reminder timers currently armed",
		},
	)
)
