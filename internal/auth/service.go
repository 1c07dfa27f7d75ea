package auth

import (
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/expense-assistant/internal"
)

type Service struct {
	tokenGenerator TokenGenerator
	logger         *slog.Logger
}

func NewService(tokenGen TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		tokenGenerator: tokenGen,
		logger:         logger,
	}
}

// IssueGatewayToken mints a token for one chat gateway deployment.
func (s *Service) IssueGatewayToken(subject string) (Token, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return Token{}, errors.NewValidationFieldError("subject", "subject is required", errors.ErrCodeValidationFailed)
	}
	token, err := s.tokenGenerator.Generate(subject, KindGateway)
	if err != nil {
		return Token{}, errors.NewInternalError("failed to issue token", err)
	}
	s.logger.Info("gateway token issued", "subject", subject, "expires_at", token.ExpiresAt)
	return token, nil
}

// ValidateAccessToken accepts only gateway tokens.
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.tokenGenerator.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != KindGateway {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}
