// Package nlp provides the small amount of language processing the expense
// pipeline needs: tokenization, lemmatization, stop words and recognition of
// MONEY, CARDINAL and DATE spans in short English utterances.
package nlp

import "strings"

type Label string

const (
	LabelMoney    Label = "MONEY"
	LabelCardinal Label = "CARDINAL"
	LabelDate     Label = "DATE"
)

// Entity is a labelled span of the processed text. Start and End are byte
// offsets into Doc.Text.
type Entity struct {
	Label Label  `json:"label"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

func (e Entity) Overlaps(o Entity) bool {
	return e.Start < o.End && o.Start < e.End
}

type Token struct {
	Text    string
	Lower   string
	Lemma   string
	Start   int
	IsAlpha bool
	IsStop  bool
}

type Doc struct {
	Text     string
	Tokens   []Token
	Entities []Entity
}

// Processor turns raw text into a Doc.
type Processor interface {
	Process(text string) *Doc
}

// Ents returns entities carrying label, in text order.
func (d *Doc) Ents(label Label) []Entity {
	var out []Entity
	for _, e := range d.Entities {
		if e.Label == label {
			out = append(out, e)
		}
	}
	return out
}

// OverlapsAny reports whether e overlaps any entity with the given label.
func (d *Doc) OverlapsAny(e Entity, label Label) bool {
	for _, o := range d.Entities {
		if o.Label == label && o.Overlaps(e) {
			return true
		}
	}
	return false
}

// ContentLemmas returns lowercased lemmas of alphabetic, non-stop tokens.
func (d *Doc) ContentLemmas() []string {
	out := make([]string, 0, len(d.Tokens))
	for _, t := range d.Tokens {
		if t.IsAlpha && !t.IsStop {
			out = append(out, t.Lemma)
		}
	}
	return out
}

// HasLemma reports whether any alphabetic token lemmatizes to lemma.
func (d *Doc) HasLemma(lemma string) bool {
	lemma = strings.ToLower(lemma)
	for _, t := range d.Tokens {
		if t.IsAlpha && t.Lemma == lemma {
			return true
		}
	}
	return false
}
