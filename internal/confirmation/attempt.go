// Package confirmation drives a parsed expense through category choice and
// final confirmation before it is persisted.
package confirmation

import (
	"strings"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/parsing"
	"github.com/google/uuid"
)

type State string

const (
	StateParsed               State = "PARSED"
	StateAwaitingCategory     State = "AWAITING_CATEGORY_CHOICE"
	StateAwaitingConfirmation State = "AWAITING_FINAL_CONFIRMATION"
	StateCommitted            State = "COMMITTED"
	StateCancelled            State = "CANCELLED"
)

func (s State) Terminal() bool {
	return s == StateCommitted || s == StateCancelled
}

// Attempt is one expense awaiting the user's decisions.
type Attempt struct {
	Key       string                `json:"key"`
	ChatID    string                `json:"chat_id"`
	Expense   parsing.ParsedExpense `json:"expense"`
	State     State                 `json:"state"`
	Choices   []string              `json:"choices,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

func (a *Attempt) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// HasChoice reports whether category is one of the offered choices.
func (a *Attempt) HasChoice(category string) bool {
	for _, c := range a.Choices {
		if c == category {
			return true
		}
	}
	return false
}

func (a *Attempt) clone() *Attempt {
	cp := *a
	if a.Choices != nil {
		cp.Choices = append([]string(nil), a.Choices...)
	}
	return &cp
}

// KeyFor derives the attempt key of an originating message. Without a
// message id a random key is used.
func KeyFor(chatID, messageID string) string {
	if messageID == "" {
		return NewKey()
	}
	return chatID + "-" + messageID
}

// NewKey returns a short random attempt key that fits in callback data
// alongside a category name.
func NewKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
