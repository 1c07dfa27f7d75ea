package attempt

import "time"

// PendingAttempt is a confirmation session awaiting user input. Expense and
// Choices hold JSON documents.
type PendingAttempt struct {
	Key       string    `gorm:"column:attempt_key;primaryKey"`
	ChatID    string    `gorm:"column:telegram_chat_id;not null;index"`
	State     string    `gorm:"column:state;not null"`
	Expense   string    `gorm:"column:expense;type:text;not null"`
	Choices   string    `gorm:"column:choices;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
}

func (PendingAttempt) TableName() string {
	return "pending_attempts"
}
