package postgres

import (
	"context"
	"strings"

	expenseDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) expense.RepositoryAPI {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, exp *expenseDatamodel.Expense) error {
	return r.db.WithContext(ctx).Create(exp).Error
}

func (r *ExpenseRepository) Summarize(ctx context.Context, filter expense.SummaryFilter) (*expense.Summary, error) {
	var row struct {
		Count int64
		Total decimal.NullDecimal
	}

	q := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Select("COUNT(*) AS count, SUM(amount) AS total").
		Where("user_id = ? AND expense_date BETWEEN ? AND ?", filter.UserID, filter.Start, filter.End)
	if c := strings.TrimSpace(filter.Category); c != "" {
		q = q.Where("LOWER(category) = ?", strings.ToLower(c))
	}
	if err := q.Scan(&row).Error; err != nil {
		return nil, err
	}

	total := decimal.Zero
	if row.Total.Valid {
		total = row.Total.Decimal
	}
	return &expense.Summary{Count: row.Count, Total: total}, nil
}

func (r *ExpenseRepository) Recent(ctx context.Context, userID int64, limit int) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("expense_date DESC").
		Order("id DESC").
		Limit(limit).
		Find(&expenses).Error
	return expenses, err
}

func (r *ExpenseRepository) Between(ctx context.Context, userID int64, start, end int64) ([]*expenseDatamodel.Expense, error) {
	var expenses []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND expense_date BETWEEN ? AND ?", userID, start, end).
		Order("expense_date ASC").
		Order("id ASC").
		Find(&expenses).Error
	return expenses, err
}
