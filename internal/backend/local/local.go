// Package local serves the backend contracts from the application's own
// database through the expense, feedback and user services.
package local

import (
	"context"
	"strconv"

	"github.com/frahmantamala/expense-assistant/internal/backend"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/feedback"
	"github.com/frahmantamala/expense-assistant/internal/user"
)

type ExpenseService interface {
	LogExpense(ctx context.Context, dto expense.LogExpenseDTO) (*expense.Expense, error)
	Summary(ctx context.Context, chatID string, start, end int64, category string) (*expense.Summary, error)
	Recent(ctx context.Context, chatID string, limit int) ([]*expense.Expense, error)
	ForReport(ctx context.Context, chatID string, start, end int64) ([]*expense.Expense, error)
}

type FeedbackService interface {
	Record(ctx context.Context, fb *feedback.Feedback) error
}

type UserService interface {
	Register(ctx context.Context, dto user.RegisterDTO) (*user.User, error)
}

type Backend struct {
	expenses ExpenseService
	feedback FeedbackService
	users    UserService
}

var _ backend.Backend = (*Backend)(nil)

func New(expenses ExpenseService, fb FeedbackService, users UserService) *Backend {
	return &Backend{expenses: expenses, feedback: fb, users: users}
}

func (b *Backend) LogExpense(ctx context.Context, req backend.LogExpenseRequest) (*backend.LogExpenseResult, error) {
	exp, err := b.expenses.LogExpense(ctx, expense.LogExpenseDTO{
		ChatID:      req.ChatID,
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		return nil, err
	}
	return &backend.LogExpenseResult{ExpenseID: strconv.FormatInt(exp.ID, 10)}, nil
}

func (b *Backend) RecordCategoryFeedback(ctx context.Context, fb backend.CategoryFeedback) error {
	return b.feedback.Record(ctx, &feedback.Feedback{
		ChatID:            fb.ChatID,
		Text:              fb.Text,
		SuggestedCategory: fb.SuggestedCategory,
		Confidence:        fb.Confidence,
		FinalCategory:     fb.FinalCategory,
	})
}

func (b *Backend) GetExpenseSummary(ctx context.Context, req backend.SummaryRequest) (*backend.Summary, error) {
	s, err := b.expenses.Summary(ctx, req.ChatID, req.Start, req.End, req.Category)
	if err != nil {
		return nil, err
	}
	return &backend.Summary{Count: s.Count, TotalAmount: s.Total, Category: s.Category}, nil
}

func (b *Backend) GetRecentExpenses(ctx context.Context, chatID string, limit int) ([]backend.Expense, error) {
	rows, err := b.expenses.Recent(ctx, chatID, limit)
	if err != nil {
		return nil, err
	}
	return toExpenses(rows), nil
}

func (b *Backend) GetExpensesForReport(ctx context.Context, chatID string, start, end int64) ([]backend.Expense, error) {
	rows, err := b.expenses.ForReport(ctx, chatID, start, end)
	if err != nil {
		return nil, err
	}
	return toExpenses(rows), nil
}

func (b *Backend) RegisterUser(ctx context.Context, req backend.RegisterUserRequest) (*backend.RegisterUserResult, error) {
	u, err := b.users.Register(ctx, user.RegisterDTO{
		Username: req.Username,
		Password: req.Password,
		ChatID:   req.ChatID,
	})
	if err != nil {
		return nil, err
	}
	return &backend.RegisterUserResult{Username: u.Username}, nil
}

func toExpenses(rows []*expense.Expense) []backend.Expense {
	out := make([]backend.Expense, len(rows))
	for i, e := range rows {
		out[i] = backend.Expense{
			Amount:      e.Amount,
			Category:    e.Category,
			Description: e.Description,
			Date:        e.ExpenseDate,
		}
	}
	return out
}
