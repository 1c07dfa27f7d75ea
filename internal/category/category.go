// Package category resolves an expense category from free text. Strategies
// implement Classifier; the rule table is shared by all of them.
package category

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prediction is the outcome of one classification. OK is false when the
// strategy produced no usable prediction; Category then holds the fallback.
type Prediction struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	OK         bool    `json:"ok"`
}

func NoPrediction() Prediction {
	return Prediction{}
}

// Classifier is implemented by every category strategy. Implementations
// never return an error: any failure is reported as a Prediction with OK false.
type Classifier interface {
	Predict(ctx context.Context, text string) Prediction
}

type Rule struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Table is the ordered category rule table. The first matching rule wins.
type Table struct {
	Default string `yaml:"default" json:"default"`
	Rules   []Rule `yaml:"categories" json:"categories"`
}

//go:embed rules.yml
var defaultRules []byte

var ErrInvalidTable = errors.New("invalid category table")

// DefaultTable returns the built-in rule table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("category: built-in rules: %v", err))
	}
	return t
}

// LoadTable reads a YAML rule table from path. An empty path yields the
// built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category rules: %w", err)
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse category rules: %w", err)
	}
	if err := t.normalize(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Table) normalize() error {
	if len(t.Rules) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidTable)
	}
	seen := make(map[string]bool, len(t.Rules))
	for i := range t.Rules {
		r := &t.Rules[i]
		r.Name = strings.TrimSpace(r.Name)
		if r.Name == "" {
			return fmt.Errorf("%w: category %d has no name", ErrInvalidTable, i)
		}
		key := strings.ToLower(r.Name)
		if seen[key] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidTable, r.Name)
		}
		seen[key] = true
		for j, kw := range r.Keywords {
			r.Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	t.Default = strings.TrimSpace(t.Default)
	if t.Default == "" {
		t.Default = "Other"
	}
	if !seen[strings.ToLower(t.Default)] {
		return fmt.Errorf("%w: default %q is not a category", ErrInvalidTable, t.Default)
	}
	return nil
}

func (t *Table) Names() []string {
	names := make([]string, len(t.Rules))
	for i, r := range t.Rules {
		names[i] = r.Name
	}
	return names
}

// Lookup returns the canonical spelling of a category name, ignoring case.
func (t *Table) Lookup(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, r := range t.Rules {
		if strings.EqualFold(r.Name, name) {
			return r.Name, true
		}
	}
	return "", false
}

func (t *Table) Has(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}
