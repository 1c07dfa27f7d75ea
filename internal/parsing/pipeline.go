package parsing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/category"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
	"github.com/frahmantamala/expense-assistant/internal/nlp"
	"github.com/shopspring/decimal"
)

// ParsedExpense is the extraction result awaiting user confirmation.
type ParsedExpense struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	// Date is milliseconds since the epoch at UTC midnight of the expense day.
	Date                int64    `json:"date"`
	AISuggestedCategory *string  `json:"ai_suggested_category,omitempty"`
	AIConfidence        *float64 `json:"ai_confidence,omitempty"`
	// Text is the full normalized description the category was derived from.
	Text string `json:"text"`
}

func (p *ParsedExpense) Day() time.Time {
	return time.UnixMilli(p.Date).UTC()
}

// HasSuggestion reports whether the classifier produced a category.
func (p *ParsedExpense) HasSuggestion() bool {
	return p.AISuggestedCategory != nil && *p.AISuggestedCategory != ""
}

// Confidence returns the classifier confidence, zero when absent.
func (p *ParsedExpense) Confidence() float64 {
	if p.AIConfidence == nil {
		return 0
	}
	return *p.AIConfidence
}

// Pipeline runs amount extraction, date resolution, normalization and
// category resolution over one utterance.
type Pipeline struct {
	nlp        nlp.Processor
	classifier category.Classifier
	dates      *DateResolver
	fallback   string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewPipeline(processor nlp.Processor, classifier category.Classifier, dates *DateResolver, defaultCategory string, logger *slog.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		nlp:        processor,
		classifier: classifier,
		dates:      dates,
		fallback:   defaultCategory,
		logger:     logger,
		metrics:    m,
	}
}

// Parse returns internal.ErrAmountNotFound when the text carries no
// positive amount; nothing else is attempted in that case.
func (p *Pipeline) Parse(ctx context.Context, text string) (*ParsedExpense, error) {
	text = strings.TrimSpace(text)
	doc := p.nlp.Process(text)

	amount, matched, ok := ExtractAmount(doc)
	if !ok {
		p.metrics.ObserveParse("no_amount")
		p.logger.Info("no amount found in expense text", "text", text)
		return nil, internal.ErrAmountNotFound
	}

	day := p.dates.Resolve("", doc)
	normalized := NormalizeDescription(text, matched, doc)

	classifyText := normalized
	if classifyText == Placeholder {
		classifyText = ""
	}

	parsed := &ParsedExpense{
		Amount:      amount,
		Category:    p.fallback,
		Description: TruncateForDisplay(normalized, MaxDescriptionLength),
		Date:        Millis(day),
		Text:        normalized,
	}

	pred := p.classifier.Predict(ctx, classifyText)
	if pred.OK && pred.Category != "" {
		suggested := pred.Category
		confidence := pred.Confidence
		parsed.Category = suggested
		parsed.AISuggestedCategory = &suggested
		parsed.AIConfidence = &confidence
	} else {
		zero := 0.0
		parsed.AIConfidence = &zero
		p.logger.Warn("no category prediction, using default", "default", p.fallback)
	}

	p.metrics.ObserveParse("parsed")
	p.logger.Debug("expense parsed",
		"amount", amount.StringFixed(2),
		"matched", matched,
		"date", day.Format("2006-01-02"),
		"description", parsed.Description,
		"category", parsed.Category)

	return parsed, nil
}

// Analyze exposes the intermediate results for diagnostics.
func (p *Pipeline) Analyze(text string) *nlp.Doc {
	return p.nlp.Process(strings.TrimSpace(text))
}
