package chat_test

import (
	"context"
	"sync"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/expense-assistant/internal/backend"
)

func TestChat(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chat Suite")
}

// fakeBackend records every call and answers from its fields.
type fakeBackend struct {
	mu sync.Mutex

	logged     []backend.LogExpenseRequest
	feedback   []backend.CategoryFeedback
	summaries  []backend.SummaryRequest
	registered []backend.RegisterUserRequest
	recent     []int

	logErr      error
	queryErr    error
	registerErr error
	summary     backend.Summary
	rows        []backend.Expense
}

var _ backend.Backend = (*fakeBackend)(nil)

func (f *fakeBackend) LogExpense(_ context.Context, req backend.LogExpenseRequest) (*backend.LogExpenseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logged = append(f.logged, req)
	if f.logErr != nil {
		return nil, f.logErr
	}
	return &backend.LogExpenseResult{ExpenseID: "e1"}, nil
}

func (f *fakeBackend) RecordCategoryFeedback(_ context.Context, fb backend.CategoryFeedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, fb)
	return nil
}

func (f *fakeBackend) GetExpenseSummary(_ context.Context, req backend.SummaryRequest) (*backend.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, req)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	s := f.summary
	return &s, nil
}

func (f *fakeBackend) GetRecentExpenses(_ context.Context, _ string, limit int) ([]backend.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recent = append(f.recent, limit)
	return f.rows, f.queryErr
}

func (f *fakeBackend) GetExpensesForReport(context.Context, string, int64, int64) ([]backend.Expense, error) {
	return f.rows, f.queryErr
}

func (f *fakeBackend) RegisterUser(_ context.Context, req backend.RegisterUserRequest) (*backend.RegisterUserResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, req)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &backend.RegisterUserResult{Username: req.Username}, nil
}
