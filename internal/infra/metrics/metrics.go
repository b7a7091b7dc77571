package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesIn = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careerbuddy_messages_in_total",
		Help: "Inbound chat messages accepted for processing.",
	})

	MessagesOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careerbuddy_messages_out_total",
		Help: "Outbound replies sent to users.",
	})

	DuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careerbuddy_duplicates_dropped_total",
		Help: "Inbound messages dropped by idempotency checks.",
	})

	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careerbuddy_generations_total",
		Help: "Documents rendered, by type.",
	}, []string{"doc_type"})

	EntitlementDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "careerbuddy_entitlement_denials_total",
		Help: "Generation attempts denied by the entitlement engine, by reason.",
	}, []string{"reason"})

	AIFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "careerbuddy_ai_failures_total",
		Help: "Content generator calls that fell back to static content.",
	})
)
