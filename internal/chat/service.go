package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/expense-assistant/internal/backend"
	"github.com/frahmantamala/expense-assistant/internal/category"
	"github.com/frahmantamala/expense-assistant/internal/confirmation"
	"github.com/frahmantamala/expense-assistant/internal/intent"
	"github.com/frahmantamala/expense-assistant/internal/metrics"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
)

const (
	CommandStart    = "/start"
	CommandRegister = "/register"
	CommandCancel   = "/cancel"
	CommandLog      = "/log"
	CommandSummary  = "/summary"
	CommandCategory = "/category"
	CommandDetails  = "/details"
	CommandReport   = "/report"
)

type Parser interface {
	Parse(ctx context.Context, text string) (*parsing.ParsedExpense, error)
}

type IntentClassifier interface {
	Classify(text string) intent.Intent
}

type Deps struct {
	Parser     Parser
	Intent     IntentClassifier
	Machine    *confirmation.Machine
	Backend    backend.Backend
	Categories *category.Table
	Dates      *parsing.DateResolver
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	// RegistrationTTL bounds how long an unfinished registration is kept.
	RegistrationTTL time.Duration
	Now             func() time.Time
}

type Service struct {
	parser        Parser
	intent        IntentClassifier
	machine       *confirmation.Machine
	backend       backend.Backend
	categories    *category.Table
	dates         *parsing.DateResolver
	metrics       *metrics.Metrics
	logger        *slog.Logger
	registrations *registrations
}

func NewService(deps Deps) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	categories := deps.Categories
	if categories == nil {
		categories = category.DefaultTable()
	}
	return &Service{
		parser:        deps.Parser,
		intent:        deps.Intent,
		machine:       deps.Machine,
		backend:       deps.Backend,
		categories:    categories,
		dates:         deps.Dates,
		metrics:       deps.Metrics,
		logger:        logger,
		registrations: newRegistrations(deps.RegistrationTTL, now),
	}
}

// HandleMessage answers one inbound message. Messages that are neither a
// known command, a registration step nor an expense are ignored and
// produce no replies.
func (s *Service) HandleMessage(ctx context.Context, msg Message) ([]Reply, error) {
	body := strings.TrimSpace(msg.Text)
	if body == "" {
		return nil, nil
	}

	if strings.HasPrefix(body, "/") {
		command, args := splitCommand(body)
		return s.handleCommand(ctx, msg, command, args)
	}

	if s.registrations.active(msg.ChatID) {
		return s.continueRegistration(ctx, msg.ChatID, body), nil
	}

	if s.intent.Classify(body) != intent.LogExpense {
		s.logger.Debug("message ignored", "chat_id", msg.ChatID)
		return nil, nil
	}
	s.metrics.ObserveCommand("intent_log")
	return s.logExpense(ctx, msg, body), nil
}

func (s *Service) handleCommand(ctx context.Context, msg Message, command, args string) ([]Reply, error) {
	switch command {
	case CommandStart, CommandRegister:
		s.metrics.ObserveCommand(command)
		return s.startRegistration(msg.ChatID), nil
	case CommandCancel:
		s.metrics.ObserveCommand(command)
		return s.cancelRegistration(msg.ChatID), nil
	case CommandLog:
		s.metrics.ObserveCommand(command)
		return s.logExpense(ctx, msg, args), nil
	case CommandSummary:
		s.metrics.ObserveCommand(command)
		return s.summary(ctx, msg.ChatID, args), nil
	case CommandCategory:
		s.metrics.ObserveCommand(command)
		return s.categorySummary(ctx, msg.ChatID, args), nil
	case CommandDetails:
		s.metrics.ObserveCommand(command)
		return s.details(ctx, msg.ChatID, args), nil
	case CommandReport:
		s.metrics.ObserveCommand(command)
		return s.report(ctx, msg.ChatID, args), nil
	}
	s.logger.Debug("unknown command ignored", "command", command, "chat_id", msg.ChatID)
	return nil, nil
}

// splitCommand separates "/cmd@bot rest" into "/cmd" and "rest".
func splitCommand(body string) (string, string) {
	command, args, _ := strings.Cut(body, " ")
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	return strings.ToLower(command), strings.TrimSpace(args)
}

func (s *Service) today() time.Time {
	if s.dates == nil {
		y, m, d := time.Now().UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return s.dates.Today()
}
