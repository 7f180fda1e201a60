package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	stageName = "stage"
	outcome   = "outcome"
	kind      = "kind"
)

var (
	// StageState reflects the state of the pipeline, one gauge per stage state set to 1 when current.
	StageState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sepadoc_stage_state",
		Help: "The current state of the pipeline",
	}, []string{"state"})

	// StageDuration is how long a stage took from start to its final signal
	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sepadoc_stage_duration_seconds",
		Help:    "Stage duration in seconds",
		Buckets: []float64{0.1, 1, 5, 10, 60, 300, 900},
	}, []string{stageName, outcome})

	// StageItems counts the records processed by each stage
	StageItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sepadoc_stage_items_total",
		Help: "Number of records processed per stage and outcome",
	}, []string{stageName, outcome})

	// StageErrors counts the errors that ended a stage or failed a record
	StageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sepadoc_stage_errors_total",
		Help: "Number of errors per stage and error kind",
	}, []string{stageName, kind})

	// AttributeFallbacks counts the tokens filled with the missing attribute sentinel
	AttributeFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sepadoc_attribute_fallbacks_total",
		Help: "Number of tokens substituted with the missing attribute sentinel",
	}, []string{"attribute"})
)

func init() {
	prometheus.MustRegister(
		StageState,
		StageDuration,
		StageItems,
		StageErrors,
		AttributeFallbacks,
	)
}

func Reset() {
	StageState.Reset()
	StageDuration.Reset()
	StageItems.Reset()
	StageErrors.Reset()
	AttributeFallbacks.Reset()
}
