// Package feedback stores which category a user finally chose for a text,
// alongside what the classifier suggested.
package feedback

import (
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-assistant/internal"
	feedbackDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/feedback"
)

type Feedback struct {
	ID                int64     `json:"id"`
	ChatID            string    `json:"telegram_chat_id"`
	Text              string    `json:"text"`
	SuggestedCategory *string   `json:"suggested_category,omitempty"`
	Confidence        *float64  `json:"confidence,omitempty"`
	FinalCategory     string    `json:"final_category"`
	CreatedAt         time.Time `json:"created_at"`
}

// Corrected reports whether the user picked something other than the
// suggestion.
func (f *Feedback) Corrected() bool {
	return f.SuggestedCategory == nil || !strings.EqualFold(*f.SuggestedCategory, f.FinalCategory)
}

func (f *Feedback) Validate() error {
	if strings.TrimSpace(f.FinalCategory) == "" {
		return errors.NewValidationError("final category is required", errors.ErrCodeInvalidCategory)
	}
	if strings.TrimSpace(f.ChatID) == "" {
		return errors.NewValidationError("chat id is required", errors.ErrCodeValidationFailed)
	}
	return nil
}

func ToDataModel(f *Feedback) *feedbackDatamodel.CategoryFeedback {
	return &feedbackDatamodel.CategoryFeedback{
		ID:                f.ID,
		ChatID:            f.ChatID,
		Text:              f.Text,
		SuggestedCategory: f.SuggestedCategory,
		Confidence:        f.Confidence,
		FinalCategory:     f.FinalCategory,
		CreatedAt:         f.CreatedAt,
	}
}

func FromDataModel(f *feedbackDatamodel.CategoryFeedback) *Feedback {
	return &Feedback{
		ID:                f.ID,
		ChatID:            f.ChatID,
		Text:              f.Text,
		SuggestedCategory: f.SuggestedCategory,
		Confidence:        f.Confidence,
		FinalCategory:     f.FinalCategory,
		CreatedAt:         f.CreatedAt,
	}
}
