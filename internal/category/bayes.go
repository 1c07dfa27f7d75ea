package category

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/frahmantamala/expense-assistant/internal/core/events"
	"github.com/frahmantamala/expense-assistant/internal/nlp"
	"github.com/jbrukh/bayesian"
)

// BayesClassifier is a naive Bayes strategy seeded from the rule table and
// refined with user category choices.
type BayesClassifier struct {
	mu       sync.RWMutex
	cl       *bayesian.Classifier
	classes  map[string]bayesian.Class
	nlp      nlp.Processor
	fallback string
	logger   *slog.Logger
}

func NewBayesClassifier(table *Table, processor nlp.Processor, logger *slog.Logger) (*BayesClassifier, error) {
	if len(table.Rules) < 2 {
		return nil, fmt.Errorf("%w: bayes strategy needs at least two categories", ErrInvalidTable)
	}

	classes := make([]bayesian.Class, 0, len(table.Rules))
	byName := make(map[string]bayesian.Class, len(table.Rules))
	for _, r := range table.Rules {
		c := bayesian.Class(r.Name)
		classes = append(classes, c)
		byName[strings.ToLower(r.Name)] = c
	}

	b := &BayesClassifier{
		cl:       bayesian.NewClassifier(classes...),
		classes:  byName,
		nlp:      processor,
		fallback: table.Default,
		logger:   logger,
	}

	for _, r := range table.Rules {
		b.Learn(r.Name, r.Name)
		for _, kw := range r.Keywords {
			b.Learn(kw, r.Name)
		}
	}

	return b, nil
}

func (b *BayesClassifier) terms(text string) []string {
	doc := b.nlp.Process(strings.ToLower(text))
	return doc.ContentLemmas()
}

// Learn records text as an example of category. Unknown categories and
// texts without content words are ignored.
func (b *BayesClassifier) Learn(text, category string) bool {
	class, ok := b.classes[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return false
	}
	terms := b.terms(text)
	if len(terms) == 0 {
		return false
	}

	b.mu.Lock()
	b.cl.Learn(terms, class)
	b.mu.Unlock()
	return true
}

func (b *BayesClassifier) Predict(_ context.Context, text string) Prediction {
	terms := b.terms(text)
	if len(terms) == 0 {
		return Prediction{Category: b.fallback}
	}

	b.mu.RLock()
	scores, idx, _ := b.cl.ProbScores(terms)
	classes := b.cl.Classes
	b.mu.RUnlock()

	if idx < 0 || idx >= len(scores) || math.IsNaN(scores[idx]) {
		return Prediction{Category: b.fallback}
	}

	return Prediction{
		Category:   string(classes[idx]),
		Confidence: scores[idx],
		OK:         true,
	}
}

// HandleFeedback is an events.Handler that learns from confirmed categories.
func (b *BayesClassifier) HandleFeedback(_ context.Context, event events.Event) error {
	fb, ok := event.(*events.CategoryFeedbackEvent)
	if !ok {
		return nil
	}
	if b.Learn(fb.Text, fb.FinalCategory) {
		b.logger.Debug("bayes classifier learned from feedback",
			"category", fb.FinalCategory,
			"event_id", fb.EventID())
	}
	return nil
}
