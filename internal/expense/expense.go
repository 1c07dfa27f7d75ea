package expense

import (
	"time"

	expenseDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
)

type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	ChatID      string          `json:"telegram_chat_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	// ExpenseDate is milliseconds since the epoch at UTC midnight.
	ExpenseDate int64     `json:"expense_date"`
	CreatedAt   time.Time `json:"created_at"`
}

func (e *Expense) Day() time.Time {
	return time.UnixMilli(e.ExpenseDate).UTC()
}

// Summary aggregates the expenses of one user over a period.
type Summary struct {
	Count    int64           `json:"count"`
	Total    decimal.Decimal `json:"total_amount"`
	Category string          `json:"category,omitempty"`
}

// SummaryFilter selects the rows a Summary is computed over. An empty
// Category matches every category.
type SummaryFilter struct {
	UserID   int64
	Start    int64
	End      int64
	Category string
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:          e.ID,
		UserID:      e.UserID,
		ChatID:      e.ChatID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		ExpenseDate: e.ExpenseDate,
		CreatedAt:   e.CreatedAt,
	}
}

func FromDataModel(e *expenseDatamodel.Expense) *Expense {
	return &Expense{
		ID:          e.ID,
		UserID:      e.UserID,
		ChatID:      e.ChatID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		ExpenseDate: e.ExpenseDate,
		CreatedAt:   e.CreatedAt,
	}
}

func FromDataModelSlice(expenses []*expenseDatamodel.Expense) []*Expense {
	result := make([]*Expense, len(expenses))
	for i, e := range expenses {
		result[i] = FromDataModel(e)
	}
	return result
}
