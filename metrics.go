package sepadoc

import (
	"time"

	"github.com/luno/sepadoc/internal/metrics"
)

func recordStageState(state StageState) {
	for _, s := range stageStateOrder {
		var v float64
		if s == state {
			v = 1
		}

		metrics.StageState.WithLabelValues(s.String()).Set(v)
	}
}

func recordStageResult(res Result, d time.Duration) {
	stage := res.Stage.String()
	metrics.StageDuration.WithLabelValues(stage, res.Outcome.String()).Observe(d.Seconds())
	metrics.StageItems.WithLabelValues(stage, "completed").Add(float64(res.Completed))
	metrics.StageItems.WithLabelValues(stage, "failed").Add(float64(res.Failed))

	if res.Err != nil {
		metrics.StageErrors.WithLabelValues(stage, KindOf(res.Err).String()).Inc()
	}
}

func recordItemError(stage Stage, err error) {
	metrics.StageErrors.WithLabelValues(stage.String(), KindOf(err).String()).Inc()
}
