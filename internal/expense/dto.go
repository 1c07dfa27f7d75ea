package expense

import (
	"strings"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

type LogExpenseDTO struct {
	ChatID      string          `json:"telegram_chat_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        int64           `json:"date"`
}

func (dto LogExpenseDTO) Validate() error {
	if err := validation.ValidateExpenseAmount(dto.Amount); err != nil {
		return err
	}
	if err := validation.ValidateExpenseDescription(dto.Description); err != nil {
		return err
	}
	if strings.TrimSpace(dto.Category) == "" {
		return errors.NewValidationError("category is required", errors.ErrCodeInvalidCategory)
	}
	if strings.TrimSpace(dto.ChatID) == "" {
		return errors.NewValidationError("chat id is required", errors.ErrCodeValidationFailed)
	}
	if dto.Date <= 0 {
		return errors.NewValidationError("expense date is required", errors.ErrCodeInvalidDate)
	}
	return nil
}
