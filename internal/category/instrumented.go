package category

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/metrics"
)

type instrumented struct {
	strategy string
	next     Classifier
	metrics  *metrics.Metrics
}

// Instrument records outcome and latency of every prediction made by next.
func Instrument(strategy string, next Classifier, m *metrics.Metrics) Classifier {
	if m == nil {
		return next
	}
	return &instrumented{strategy: strategy, next: next, metrics: m}
}

func (i *instrumented) Predict(ctx context.Context, text string) Prediction {
	start := time.Now()
	p := i.next.Predict(ctx, text)
	i.metrics.ObserveClassification(i.strategy, p.OK, time.Since(start))
	return p
}
