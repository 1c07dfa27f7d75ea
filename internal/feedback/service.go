package feedback

import (
	"context"
	"log/slog"
	"time"

	feedbackDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/feedback"
)

type RepositoryAPI interface {
	Create(ctx context.Context, fb *feedbackDatamodel.CategoryFeedback) error
	Recent(ctx context.Context, limit int) ([]*feedbackDatamodel.CategoryFeedback, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Record(ctx context.Context, fb *Feedback) error {
	if err := fb.Validate(); err != nil {
		return err
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	model := ToDataModel(fb)
	if err := s.repo.Create(ctx, model); err != nil {
		s.logger.Error("failed to record category feedback", "error", err, "chat_id", fb.ChatID)
		return err
	}
	fb.ID = model.ID

	s.logger.Debug("category feedback recorded",
		"chat_id", fb.ChatID,
		"final_category", fb.FinalCategory,
		"corrected", fb.Corrected())
	return nil
}

// Recent returns up to limit feedback rows, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]*Feedback, error) {
	rows, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Feedback, len(rows))
	for i, r := range rows {
		out[i] = FromDataModel(r)
	}
	return out, nil
}
