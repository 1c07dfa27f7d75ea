package category

import (
	"context"
	"strings"

	"github.com/frahmantamala/expense-assistant/internal/nlp"
)

// KeywordClassifier matches the rule table against the text. Multi-word
// triggers match as substrings of the lowercased text; single-word triggers
// match a content token by lemma or by surface form.
type KeywordClassifier struct {
	table *Table
	nlp   nlp.Processor
}

func NewKeywordClassifier(table *Table, processor nlp.Processor) *KeywordClassifier {
	return &KeywordClassifier{table: table, nlp: processor}
}

func (k *KeywordClassifier) Predict(_ context.Context, text string) Prediction {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Prediction{Category: k.table.Default}
	}

	terms := make(map[string]struct{})
	for _, t := range k.nlp.Process(lower).Tokens {
		if t.IsAlpha && !t.IsStop {
			terms[t.Lemma] = struct{}{}
			terms[t.Lower] = struct{}{}
		}
	}

	for _, rule := range k.table.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(kw, " ") {
				if strings.Contains(lower, kw) {
					return Prediction{Category: rule.Name, Confidence: 1, OK: true}
				}
				continue
			}
			if _, ok := terms[kw]; ok {
				return Prediction{Category: rule.Name, Confidence: 1, OK: true}
			}
		}
	}

	return Prediction{Category: k.table.Default}
}
