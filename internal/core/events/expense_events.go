package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseLogged    = "expense.logged"
	EventTypeCategoryFeedback = "category.feedback"
	EventTypeAttemptExpired   = "attempt.expired"
)

type ExpenseLoggedEvent struct {
	BaseEvent
	ChatID   string `json:"chat_id"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Date     int64  `json:"date"`
}

func NewExpenseLoggedEvent(chatID, amount, category string, date int64) *ExpenseLoggedEvent {
	return &ExpenseLoggedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeExpenseLogged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"chat_id":  chatID,
				"amount":   amount,
				"category": category,
				"date":     date,
			},
		},
		ChatID:   chatID,
		Amount:   amount,
		Category: category,
		Date:     date,
	}
}

// CategoryFeedbackEvent carries the category a user settled on for a text,
// alongside what the classifier originally suggested.
type CategoryFeedbackEvent struct {
	BaseEvent
	ChatID            string   `json:"chat_id"`
	Text              string   `json:"text"`
	SuggestedCategory *string  `json:"suggested_category,omitempty"`
	Confidence        *float64 `json:"confidence,omitempty"`
	FinalCategory     string   `json:"final_category"`
}

func NewCategoryFeedbackEvent(chatID, text string, suggested *string, confidence *float64, final string) *CategoryFeedbackEvent {
	return &CategoryFeedbackEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCategoryFeedback,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"chat_id":        chatID,
				"text":           text,
				"final_category": final,
			},
		},
		ChatID:            chatID,
		Text:              text,
		SuggestedCategory: suggested,
		Confidence:        confidence,
		FinalCategory:     final,
	}
}

type AttemptExpiredEvent struct {
	BaseEvent
	Count int `json:"count"`
}

func NewAttemptExpiredEvent(count int) *AttemptExpiredEvent {
	return &AttemptExpiredEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAttemptExpired,
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"count": count},
		},
		Count: count,
	}
}
