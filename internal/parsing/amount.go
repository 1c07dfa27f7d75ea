// Package parsing turns a free-form expense utterance into a ParsedExpense.
package parsing

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/frahmantamala/expense-assistant/internal/nlp"
	"github.com/shopspring/decimal"
)

const currencySymbols = "$€£"

var (
	fallbackAmountRe = regexp.MustCompile(`([$€£]?)\s*(\d+(?:[.,]\d+)?|\.\d+)`)
	currencyWordRe   = regexp.MustCompile(`(?i)\s*\b(?:dollars?|bucks|usd|euros?|eur|pounds?|gbp)\b`)
)

// ExtractAmount finds the expense amount in doc. It returns the amount and
// the exact substring to remove from the text, or ok false when no positive
// amount exists. Candidates are tried in order: MONEY entities, CARDINAL
// entities outside any DATE span, then the first number in the text.
func ExtractAmount(doc *nlp.Doc) (amount decimal.Decimal, matched string, ok bool) {
	for _, ent := range doc.Ents(nlp.LabelMoney) {
		if v, ok := parseAmount(ent.Text); ok {
			return v, withCurrencySymbol(doc.Text, ent), true
		}
	}

	for _, ent := range doc.Ents(nlp.LabelCardinal) {
		if doc.OverlapsAny(ent, nlp.LabelDate) {
			continue
		}
		if v, ok := parseAmount(ent.Text); ok {
			return v, withCurrencySymbol(doc.Text, ent), true
		}
	}

	if m := fallbackAmountRe.FindStringSubmatch(doc.Text); m != nil {
		if v, ok := parseAmount(m[2]); ok {
			return v, strings.TrimSpace(m[0]), true
		}
	}

	return decimal.Zero, "", false
}

// HasAmountIndicator reports whether doc carries a MONEY entity or a
// CARDINAL that does not overlap a DATE.
func HasAmountIndicator(doc *nlp.Doc) bool {
	if len(doc.Ents(nlp.LabelMoney)) > 0 {
		return true
	}
	for _, ent := range doc.Ents(nlp.LabelCardinal) {
		if !doc.OverlapsAny(ent, nlp.LabelDate) {
			return true
		}
	}
	return false
}

// parseAmount strips currency symbols, currency words and thousands
// separators and accepts only positive values.
func parseAmount(s string) (decimal.Decimal, bool) {
	s = currencyWordRe.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(currencySymbols, r) || r == ',' || r == ' ' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, false
	}
	if s[0] == '.' {
		s = "0" + s
	}
	v, err := decimal.NewFromString(s)
	if err != nil || !v.IsPositive() {
		return decimal.Zero, false
	}
	return v, true
}

// withCurrencySymbol extends ent to include a currency symbol immediately
// before it, allowing a single space in between.
func withCurrencySymbol(text string, ent nlp.Entity) string {
	if ent.Text == "" {
		return ent.Text
	}
	first, _ := utf8.DecodeRuneInString(ent.Text)
	if strings.ContainsRune(currencySymbols, first) {
		return ent.Text
	}

	start := ent.Start
	r, size := utf8.DecodeLastRuneInString(text[:start])
	if size > 0 && strings.ContainsRune(currencySymbols, r) {
		return text[start-size : ent.End]
	}
	if r == ' ' {
		r2, size2 := utf8.DecodeLastRuneInString(text[:start-size])
		if size2 > 0 && strings.ContainsRune(currencySymbols, r2) {
			return text[start-size-size2 : ent.End]
		}
	}
	return ent.Text
}
