// Package backend defines the persistence contracts the assistant talks to.
// Each operation corresponds to a logical query or mutation name.
package backend

import (
	"context"

	"github.com/shopspring/decimal"
)

// Logical operation names understood by every backend.
const (
	FnLogExpense           = "expenses:logExpense"
	FnRecordFeedback       = "feedback:recordCategoryFeedback"
	FnGetExpenseSummary    = "queries:getExpenseSummary"
	FnGetRecentExpenses    = "queries:getRecentExpenses"
	FnGetExpensesForReport = "queries:getExpensesForReport"
	FnRegisterUser         = "auth:registerUser"
)

type LogExpenseRequest struct {
	ChatID      string
	Amount      decimal.Decimal
	Category    string
	Description string
	// Date is milliseconds since the epoch.
	Date int64
}

type LogExpenseResult struct {
	ExpenseID string
}

// CategoryFeedback records what the user finally chose for a text.
type CategoryFeedback struct {
	ChatID            string
	Text              string
	SuggestedCategory *string
	Confidence        *float64
	FinalCategory     string
}

type SummaryRequest struct {
	ChatID   string
	Start    int64
	End      int64
	Category string
}

type Summary struct {
	Count       int64
	TotalAmount decimal.Decimal
	Category    string
}

type Expense struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        int64
}

type RegisterUserRequest struct {
	Username string
	Password string
	ChatID   string
}

type RegisterUserResult struct {
	Username string
}

// ExpenseStore persists expenses and answers the expense queries.
type ExpenseStore interface {
	LogExpense(ctx context.Context, req LogExpenseRequest) (*LogExpenseResult, error)
	GetExpenseSummary(ctx context.Context, req SummaryRequest) (*Summary, error)
	GetRecentExpenses(ctx context.Context, chatID string, limit int) ([]Expense, error)
	GetExpensesForReport(ctx context.Context, chatID string, start, end int64) ([]Expense, error)
}

type FeedbackRecorder interface {
	RecordCategoryFeedback(ctx context.Context, fb CategoryFeedback) error
}

type UserRegistrar interface {
	RegisterUser(ctx context.Context, req RegisterUserRequest) (*RegisterUserResult, error)
}

// Backend is the full set of operations a deployment provides.
type Backend interface {
	ExpenseStore
	FeedbackRecorder
	UserRegistrar
}
