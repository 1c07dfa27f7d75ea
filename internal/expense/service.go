package expense

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/core/common/validation"
	expenseDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-assistant/internal/user"
)

type RepositoryAPI interface {
	Create(ctx context.Context, expense *expenseDatamodel.Expense) error
	Summarize(ctx context.Context, filter SummaryFilter) (*Summary, error)
	Recent(ctx context.Context, userID int64, limit int) ([]*expenseDatamodel.Expense, error)
	Between(ctx context.Context, userID int64, start, end int64) ([]*expenseDatamodel.Expense, error)
}

// UserLookup resolves the account linked to a chat.
type UserLookup interface {
	GetByChatID(ctx context.Context, chatID string) (*user.User, error)
}

type Service struct {
	repo   RepositoryAPI
	users  UserLookup
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, users UserLookup, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// LogExpense stores an expense for the user linked to dto.ChatID.
func (s *Service) LogExpense(ctx context.Context, dto LogExpenseDTO) (*Expense, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("expense validation failed", "error", err, "chat_id", dto.ChatID)
		return nil, err
	}

	u, err := s.users.GetByChatID(ctx, dto.ChatID)
	if err != nil {
		s.logger.Warn("expense for unknown chat", "chat_id", dto.ChatID, "error", err)
		return nil, err
	}

	exp := &Expense{
		UserID:      u.ID,
		ChatID:      dto.ChatID,
		Amount:      dto.Amount.Round(2),
		Category:    dto.Category,
		Description: dto.Description,
		ExpenseDate: dto.Date,
		CreatedAt:   time.Now().UTC(),
	}

	model := ToDataModel(exp)
	if err := s.repo.Create(ctx, model); err != nil {
		s.logger.Error("failed to create expense", "error", err, "user_id", u.ID)
		return nil, err
	}
	exp.ID = model.ID

	s.logger.Info("expense logged",
		"expense_id", exp.ID,
		"user_id", u.ID,
		"amount", exp.Amount.StringFixed(2),
		"category", exp.Category)

	return exp, nil
}

func (s *Service) Summary(ctx context.Context, chatID string, start, end int64, category string) (*Summary, error) {
	u, err := s.users.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.Summarize(ctx, SummaryFilter{
		UserID:   u.ID,
		Start:    start,
		End:      end,
		Category: category,
	})
	if err != nil {
		s.logger.Error("failed to summarize expenses", "error", err, "user_id", u.ID)
		return nil, err
	}
	summary.Total = summary.Total.Round(2)
	summary.Category = category
	return summary, nil
}

// Recent returns the newest expenses first. limit must be within 1..50.
func (s *Service) Recent(ctx context.Context, chatID string, limit int) ([]*Expense, error) {
	if err := validation.ValidateRecentLimit(limit); err != nil {
		return nil, err
	}

	u, err := s.users.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Recent(ctx, u.ID, limit)
	if err != nil {
		s.logger.Error("failed to get recent expenses", "error", err, "user_id", u.ID)
		return nil, err
	}
	return FromDataModelSlice(rows), nil
}

// ForReport returns every expense in [start, end] oldest first.
func (s *Service) ForReport(ctx context.Context, chatID string, start, end int64) ([]*Expense, error) {
	u, err := s.users.GetByChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.Between(ctx, u.ID, start, end)
	if err != nil {
		s.logger.Error("failed to get expenses for report", "error", err, "user_id", u.ID)
		return nil, err
	}
	return FromDataModelSlice(rows), nil
}
