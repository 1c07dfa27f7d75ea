package user

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/expense-assistant/internal"
	userDatamodel "github.com/frahmantamala/expense-assistant/internal/core/datamodel/user"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = stdErrors.New("user not found")

// ErrDuplicate is returned by repositories on a unique constraint violation.
var ErrDuplicate = stdErrors.New("user already exists")

type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	GetByChatID(ctx context.Context, chatID string) (*userDatamodel.User, error)
}

type Service struct {
	repo       RepositoryAPI
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates an account for dto.ChatID. Usernames are unique
// case-insensitively and a chat can be linked to one account only.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*User, error) {
	dto = dto.Normalized()
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	if dto.ChatID == "" {
		return nil, errors.NewValidationError("chat id is required", errors.ErrCodeValidationFailed)
	}

	if _, err := s.repo.GetByChatID(ctx, dto.ChatID); err == nil {
		return nil, errors.ErrChatRegistered
	} else if !stdErrors.Is(err, ErrNotFound) {
		return nil, errors.NewInternalError("failed to look up chat", err)
	}

	if _, err := s.repo.GetByUsername(ctx, strings.ToLower(dto.Username)); err == nil {
		return nil, errors.ErrUsernameTaken
	} else if !stdErrors.Is(err, ErrNotFound) {
		return nil, errors.NewInternalError("failed to look up username", err)
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, errors.NewInternalError("failed to hash password", err)
	}

	model := &userDatamodel.User{
		Username:     strings.ToLower(dto.Username),
		PasswordHash: hash,
		ChatID:       dto.ChatID,
	}
	if err := s.repo.Create(ctx, model); err != nil {
		if stdErrors.Is(err, ErrDuplicate) {
			return nil, errors.ErrUsernameTaken
		}
		s.logger.Error("failed to create user", "error", err, "username", model.Username)
		return nil, errors.NewInternalError("failed to create user", err)
	}

	s.logger.Info("user registered", "user_id", model.ID, "username", model.Username)
	return FromDataModel(model), nil
}

func (s *Service) GetByChatID(ctx context.Context, chatID string) (*User, error) {
	u, err := s.repo.GetByChatID(ctx, chatID)
	if err != nil {
		if stdErrors.Is(err, ErrNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.NewInternalError("failed to get user", err)
	}
	return FromDataModel(u), nil
}
