package nlp

import (
	"regexp"
	"sort"
	"strings"
)

const (
	monthPattern   = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`
	weekdayPattern = `(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)`
	numberPattern  = `\d+(?:[.,]\d+)*`
	ordinalSuffix  = `(?:st|nd|rd|th)?`
	// amountPattern also takes a bare fraction such as .50 after a symbol.
	amountPattern  = `(?:\d+(?:[.,]\d+)*|\.\d+)`
)

var (
	tokenRe = regexp.MustCompile(`[\p{L}]+(?:'[\p{L}]+)?|\d+(?:[.,]\d+)*|\S`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{4}-\d{1,2}-\d{1,2}\b`),
		regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b` + monthPattern + `\.?\s+\d{1,2}` + ordinalSuffix + `(?:,?\s+\d{4})?\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}` + ordinalSuffix + `\s+(?:of\s+)?` + monthPattern + `(?:,?\s+\d{4})?\b`),
		regexp.MustCompile(`(?i)\b(?:today|yesterday|tomorrow|tonight)\b`),
		regexp.MustCompile(`(?i)\b(?:last|this|next)\s+(?:week|weekend|month|year|` + weekdayPattern + `)\b`),
		regexp.MustCompile(`(?i)\b\d+\s+(?:days?|weeks?|months?)\s+ago\b`),
		regexp.MustCompile(`(?i)\b` + weekdayPattern + `\b`),
	}

	moneyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[$€£]\s?` + amountPattern),
		regexp.MustCompile(`(?i)\b` + numberPattern + `\s?(?:dollars?|bucks|usd|euros?|eur|pounds?|gbp)\b`),
		regexp.MustCompile(`\b` + numberPattern + `[$€£]`),
	}

	cardinalRe = regexp.MustCompile(`\b` + numberPattern + `\b`)
)

// RuleProcessor is a deterministic, pattern based Processor. It reports a
// CARDINAL for every bare number outside a MONEY span, including numbers
// that sit inside DATE spans; consumers decide how to treat those overlaps.
type RuleProcessor struct{}

func NewProcessor() *RuleProcessor {
	return &RuleProcessor{}
}

func (p *RuleProcessor) Process(text string) *Doc {
	doc := &Doc{Text: text}
	doc.Tokens = tokenize(text)

	dates := longestNonOverlapping(findSpans(text, LabelDate, datePatterns))

	var money []Entity
	for _, m := range longestNonOverlapping(findSpans(text, LabelMoney, moneyPatterns)) {
		if !overlapsAny(m, dates) {
			money = append(money, m)
		}
	}

	var cardinals []Entity
	for _, loc := range cardinalRe.FindAllStringIndex(text, -1) {
		c := Entity{Label: LabelCardinal, Text: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]}
		if !overlapsAny(c, money) {
			cardinals = append(cardinals, c)
		}
	}

	ents := make([]Entity, 0, len(dates)+len(money)+len(cardinals))
	ents = append(ents, dates...)
	ents = append(ents, money...)
	ents = append(ents, cardinals...)
	sort.SliceStable(ents, func(i, j int) bool { return ents[i].Start < ents[j].Start })
	doc.Entities = ents

	return doc
}

func tokenize(text string) []Token {
	locs := tokenRe.FindAllStringIndex(text, -1)
	tokens := make([]Token, 0, len(locs))
	for _, loc := range locs {
		raw := text[loc[0]:loc[1]]
		lower := strings.ToLower(raw)
		t := Token{Text: raw, Lower: lower, Lemma: lower, Start: loc[0]}
		if isAlpha(raw) {
			t.IsAlpha = true
			t.Lemma = Lemmatize(lower)
			t.IsStop = IsStopWord(lower)
		}
		tokens = append(tokens, t)
	}
	return tokens
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r == '\'' {
			continue
		}
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || r > 127) {
			return false
		}
	}
	return s != ""
}

func findSpans(text string, label Label, patterns []*regexp.Regexp) []Entity {
	var out []Entity
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			out = append(out, Entity{Label: label, Text: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
		}
	}
	return out
}

// longestNonOverlapping keeps, left to right, the longest span at each
// position and drops anything overlapping an already kept span.
func longestNonOverlapping(spans []Entity) []Entity {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End-spans[i].Start > spans[j].End-spans[j].Start
	})
	var kept []Entity
	for _, s := range spans {
		if len(kept) > 0 && kept[len(kept)-1].Overlaps(s) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

func overlapsAny(e Entity, others []Entity) bool {
	for _, o := range others {
		if e.Overlaps(o) {
			return true
		}
	}
	return false
}
