package chat

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/backend"
	"github.com/frahmantamala/expense-assistant/internal/core/common/validation"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

const (
	msgWelcome           = "Welcome to the Expense Bot! Let's get you registered.\nPlease choose a username (at least 3 characters):"
	msgShortUsername     = "Username must be at least 3 characters long. Please try again:"
	msgShortPassword     = "Password must be at least 6 characters. Please try again:"
	msgRegistering       = "Attempting to register you... Please wait."
	msgUsernameTaken     = "This username is already taken. Please try /start again with a different username."
	msgRegistrationError = "An error occurred during registration. Please try again later."
	msgRegistrationEnded = "Registration cancelled. Type /start if you want to try again."
	msgNothingToCancel   = "There is nothing to cancel."

	defaultRegistrationTTL = 10 * time.Minute
)

type regStep int

const (
	stepUsername regStep = iota
	stepPassword
)

type registration struct {
	step     regStep
	username string
	expires  time.Time
}

// registrations tracks chats in the middle of signing up.
type registrations struct {
	mu    sync.Mutex
	items map[string]*registration
	ttl   time.Duration
	now   func() time.Time
}

func newRegistrations(ttl time.Duration, now func() time.Time) *registrations {
	if ttl <= 0 {
		ttl = defaultRegistrationTTL
	}
	return &registrations{items: make(map[string]*registration), ttl: ttl, now: now}
}

func (r *registrations) start(chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[chatID] = &registration{step: stepUsername, expires: r.now().Add(r.ttl)}
}

func (r *registrations) get(chatID string) (registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.items[chatID]
	if !ok {
		return registration{}, false
	}
	if !r.now().Before(reg.expires) {
		delete(r.items, chatID)
		return registration{}, false
	}
	return *reg, true
}

func (r *registrations) active(chatID string) bool {
	_, ok := r.get(chatID)
	return ok
}

func (r *registrations) setUsername(chatID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.items[chatID]; ok {
		reg.username = username
		reg.step = stepPassword
		reg.expires = r.now().Add(r.ttl)
	}
}

func (r *registrations) end(chatID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[chatID]
	delete(r.items, chatID)
	return ok
}

func (s *Service) startRegistration(chatID string) []Reply {
	s.registrations.start(chatID)
	return []Reply{text(msgWelcome)}
}

func (s *Service) cancelRegistration(chatID string) []Reply {
	if !s.registrations.end(chatID) {
		return []Reply{text(msgNothingToCancel)}
	}
	return []Reply{text(msgRegistrationEnded)}
}

func (s *Service) continueRegistration(ctx context.Context, chatID, body string) []Reply {
	reg, ok := s.registrations.get(chatID)
	if !ok {
		return nil
	}

	switch reg.step {
	case stepUsername:
		if utf8.RuneCountInString(body) < validation.MinUsernameLength {
			return []Reply{text(msgShortUsername)}
		}
		s.registrations.setUsername(chatID, body)
		return []Reply{text(fmt.Sprintf("Great, username '%s' noted. Now, please enter a password (at least 6 characters):", body))}
	case stepPassword:
		if utf8.RuneCountInString(body) < validation.MinPasswordLength {
			return []Reply{text(msgShortPassword)}
		}
	}

	replies := []Reply{text(msgRegistering)}
	defer s.registrations.end(chatID)

	res, err := s.backend.RegisterUser(ctx, backend.RegisterUserRequest{
		Username: reg.username,
		Password: body,
		ChatID:   chatID,
	})
	if err != nil {
		return append(replies, text(registrationErrorText(ctx, err)))
	}

	logger.From(ctx).Info("chat registered", "chat_id", chatID, "username", res.Username)
	return append(replies, text(fmt.Sprintf(
		"Registration successful! Welcome, %s!\nYou can now log expenses, e.g.: /log $20 for lunch yesterday\nAnd query using: /summary [period]",
		res.Username)))
}

func registrationErrorText(ctx context.Context, err error) string {
	switch {
	case stdErrors.Is(err, errors.ErrUsernameTaken):
		return msgUsernameTaken
	case stdErrors.Is(err, errors.ErrChatRegistered):
		return errors.ErrChatRegistered.Message
	}
	if appErr, ok := errors.IsAppError(err); ok && appErr.Type == errors.ErrorTypeValidation {
		return appErr.GetDetailedMessage()
	}
	logger.From(ctx).Error("registration failed", "error", err)
	return msgRegistrationError
}
