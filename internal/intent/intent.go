// Package intent decides whether a command-less message is an attempt to
// log an expense.
package intent

import (
	"log/slog"
	"strings"

	"github.com/frahmantamala/expense-assistant/internal/nlp"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
)

type Intent string

const (
	LogExpense Intent = "LOG_EXPENSE"
	Unknown    Intent = "UNKNOWN"
)

var (
	loggingLemmas = []string{"spend", "pay", "buy", "get", "cost", "expense", "charge", "use", "purchase"}
	queryPhrases  = []string{"how much", "show me", "what did i spend", "summary", "details", "report", "category spending"}
)

type Classifier struct {
	nlp    nlp.Processor
	logger *slog.Logger
}

func NewClassifier(processor nlp.Processor, logger *slog.Logger) *Classifier {
	return &Classifier{nlp: processor, logger: logger}
}

// Classify returns LogExpense only when the text has an amount indicator,
// a logging verb, and none of the query phrases.
func (c *Classifier) Classify(text string) Intent {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Unknown
	}

	doc := c.nlp.Process(lower)
	hasAmount := parsing.HasAmountIndicator(doc)

	hasVerb := false
	for _, lemma := range loggingLemmas {
		if doc.HasLemma(lemma) {
			hasVerb = true
			break
		}
	}

	isQuery := false
	for _, phrase := range queryPhrases {
		if strings.Contains(lower, phrase) {
			isQuery = true
			break
		}
	}

	c.logger.Debug("intent check",
		"has_amount", hasAmount,
		"has_logging_verb", hasVerb,
		"is_query", isQuery)

	if hasAmount && hasVerb && !isQuery {
		return LogExpense
	}
	return Unknown
}
