package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricStateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_orch_state_transitions_total",
		Help: "Orchestrator phase transitions",
	}, []string{"from", "to"})

	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_orch_events_total",
		Help: "Events processed by session actors",
	}, []string{"event"})

	metricIntents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_intents_total",
		Help: "Resolved intents by kind",
	}, []string{"kind"})

	metricModuleScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "kiosk_module_match_score",
		Help:    "Fuzzy score of accepted module matches",
		Buckets: prometheus.LinearBuckets(0.4, 0.1, 7),
	})

	metricCollaboratorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kiosk_collaborator_failures_total",
		Help: "Speech actor, media presenter and display failures",
	}, []string{"collaborator"})

	metricEffectLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kiosk_effect_latency_ms",
		Help:    "Time to carry out one effect against a collaborator",
		Buckets: prometheus.ExponentialBuckets(5, 2, 12),
	}, []string{"effect"})

	metricIdlePrompts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_idle_prompts_total",
		Help: "Are-you-still-there prompts shown",
	})

	metricVisitResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kiosk_visit_resets_total",
		Help: "Sessions returned to WELCOME by prompt timeout or end",
	})

	metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kiosk_active_sessions",
		Help: "Session actors currently running",
	})
)
