package feedback

import "time"

type CategoryFeedback struct {
	ID                int64     `gorm:"primaryKey"`
	ChatID            string    `gorm:"column:telegram_chat_id;not null;index"`
	Text              string    `gorm:"column:text;not null"`
	SuggestedCategory *string   `gorm:"column:suggested_category"`
	Confidence        *float64  `gorm:"column:confidence"`
	FinalCategory     string    `gorm:"column:final_category;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (CategoryFeedback) TableName() string {
	return "category_feedback"
}
