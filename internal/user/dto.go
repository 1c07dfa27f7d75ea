package user

import (
	"strings"

	"github.com/frahmantamala/expense-assistant/internal/core/common/validation"
)

type RegisterDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ChatID   string `json:"telegram_chat_id"`
}

func (dto RegisterDTO) Normalized() RegisterDTO {
	dto.Username = strings.TrimSpace(dto.Username)
	dto.ChatID = strings.TrimSpace(dto.ChatID)
	return dto
}

func (dto RegisterDTO) Validate() error {
	if err := validation.ValidateCredentials(dto.Username, dto.Password); err != nil {
		return err
	}
	return nil
}
