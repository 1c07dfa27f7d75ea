package parsing

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/frahmantamala/expense-assistant/internal/nlp"
)

const (
	// Placeholder stands in for a description that normalizes to nothing.
	Placeholder = "N/A"

	MaxDescriptionLength = 100
	ellipsis             = "..."
)

var (
	leadingFillerRe  = regexp.MustCompile(`(?i)^(?:on|for|at|spent|buy|bought|get|got|paid)\s+`)
	trailingFillerRe = regexp.MustCompile(`(?i)\s+(?:on|for|at)$`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// NormalizeDescription removes the amount and date phrases from text and
// cleans what is left.
func NormalizeDescription(text, amountText string, doc *nlp.Doc) string {
	out := removeFirst(text, amountText)
	if doc != nil {
		for _, ent := range doc.Ents(nlp.LabelDate) {
			out = removeFirst(out, ent.Text)
		}
	}
	return CleanDescription(out)
}

// CleanDescription strips filler words at either end and collapses
// whitespace. It is idempotent.
func CleanDescription(s string) string {
	s = collapse(s)
	for {
		next := collapse(trailingFillerRe.ReplaceAllString(leadingFillerRe.ReplaceAllString(s, ""), ""))
		if next == s {
			break
		}
		s = next
	}
	if s == "" || s == Placeholder {
		return Placeholder
	}
	return s
}

// TruncateForDisplay shortens s to max characters, marking the cut.
func TruncateForDisplay(s string, max int) string {
	if max <= len(ellipsis) || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-len(ellipsis)]) + ellipsis
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// removeFirst deletes the first case-insensitive occurrence of sub. Word
// boundaries are enforced on whichever ends of sub are alphanumeric.
func removeFirst(text, sub string) string {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return text
	}
	pattern := regexp.QuoteMeta(sub)
	if first, _ := utf8.DecodeRuneInString(sub); isWordRune(first) {
		pattern = `\b` + pattern
	}
	if last, _ := utf8.DecodeLastRuneInString(sub); isWordRune(last) {
		pattern += `\b`
	}
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return text
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + " " + text[loc[1]:]
}

func isWordRune(r rune) bool {
	return r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
