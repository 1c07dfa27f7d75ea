package postgres

import (
	"context"

	feedbackDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/feedback"
	"github.com/frahmantamala/expense-assistant/internal/feedback"
	"gorm.io/gorm"
)

type FeedbackRepository struct {
	db *gorm.DB
}

func NewFeedbackRepository(db *gorm.DB) feedback.RepositoryAPI {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, fb *feedbackDatamodel.CategoryFeedback) error {
	return r.db.WithContext(ctx).Create(fb).Error
}

func (r *FeedbackRepository) Recent(ctx context.Context, limit int) ([]*feedbackDatamodel.CategoryFeedback, error) {
	var rows []*feedbackDatamodel.CategoryFeedback
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
