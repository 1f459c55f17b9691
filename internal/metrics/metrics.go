package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice"

var (
	// Intents counts classified utterances by intent.
	Intents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intents_total",
		Help:      "Classified utterances by intent.",
	}, []string{"intent"})

	// FetchOutcomes counts encyclopedia and weather lookups by result.
	FetchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_outcomes_total",
		Help:      "External lookups by fetcher and outcome.",
	}, []string{"fetcher", "outcome"})

	RecognitionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recognition_errors_total",
		Help:      "Speech recognition errors reported by clients, by cause.",
	}, []string{"cause"})
)
