package chat

import (
	"context"
	stdErrors "errors"
	"fmt"
	"strings"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/confirmation"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

const (
	msgLogUsage       = "Please provide expense details after /log.\nExample: /log $20 for lunch at the new cafe yesterday"
	msgNoAmount       = "Could not determine a valid positive amount. Please include it clearly (e.g., $10.50 or 10.50)."
	msgExpired        = "Sorry, something went wrong or this request expired."
	msgInvalidAction  = "Sorry, I didn't understand that action."
	msgInvalidChoice  = "Invalid selection."
	msgCancelledEarly = "Logging cancelled as requested."
	msgCancelledFinal = "Logging cancelled. Feel free to try again with /log."
	msgLogFailed      = "⚠️ An error occurred while logging your expense. Please try again."

	labelCancelLog = "❌ Cancel Log"
	labelConfirm   = "✅ Yes, Log It!"
	labelReject    = "❌ No, Cancel"

	longDateLayout = "2006-01-02 (Monday)"
)

func (s *Service) logExpense(ctx context.Context, msg Message, body string) []Reply {
	log := logger.From(ctx).With("chat_id", msg.ChatID)
	if strings.TrimSpace(body) == "" {
		return []Reply{text(msgLogUsage)}
	}

	parsed, err := s.parser.Parse(ctx, body)
	if err != nil {
		if stdErrors.Is(err, errors.ErrAmountNotFound) {
			return []Reply{text(msgNoAmount)}
		}
		log.Error("failed to parse expense", "error", err)
		return []Reply{text(msgLogFailed)}
	}

	tr, err := s.machine.Begin(ctx, msg.ChatID, msg.MessageID, parsed)
	if err != nil {
		log.Error("failed to start confirmation", "error", err)
		return []Reply{text(msgLogFailed)}
	}
	return []Reply{s.prompt(tr.Attempt, false)}
}

// HandleAction applies a button press from chatID.
func (s *Service) HandleAction(ctx context.Context, chatID, data string) ([]Reply, error) {
	log := logger.From(ctx).With("chat_id", chatID)

	action, err := confirmation.DecodeAction(data)
	if err != nil {
		log.Warn("undecodable action", "data", data)
		return []Reply{edit(msgInvalidAction)}, nil
	}

	tr, err := s.machine.Apply(ctx, chatID, action)
	if err != nil {
		return []Reply{edit(actionErrorText(err))}, nil
	}

	switch action.(type) {
	case confirmation.SelectCategory:
		return []Reply{s.prompt(tr.Attempt, true)}, nil
	case confirmation.CancelAttempt:
		return []Reply{edit(msgCancelledEarly)}, nil
	case confirmation.ConfirmCancel:
		return []Reply{edit(msgCancelledFinal)}, nil
	case confirmation.ConfirmCommit:
		return []Reply{edit(loggedText(&tr.Attempt.Expense))}, nil
	}
	return []Reply{edit(msgInvalidAction)}, nil
}

func actionErrorText(err error) string {
	switch {
	case stdErrors.Is(err, errors.ErrAttemptExpired):
		return msgExpired
	case stdErrors.Is(err, errors.ErrInvalidAction):
		return msgInvalidChoice
	case stdErrors.Is(err, errors.ErrCommitFailed):
		appErr, _ := errors.IsAppError(err)
		return "⚠️ Error: " + appErr.Message
	}
	return msgLogFailed
}

// prompt renders the question the attempt is waiting on.
func (s *Service) prompt(a *confirmation.Attempt, replace bool) Reply {
	if a.State == confirmation.StateAwaitingCategory {
		r := categoryPrompt(a)
		r.Replace = replace
		return r
	}
	r := finalPrompt(a)
	r.Replace = replace
	return r
}

func categoryPrompt(a *confirmation.Attempt) Reply {
	exp := &a.Expense

	buttons := make([]Button, 0, len(a.Choices))
	for _, c := range a.Choices {
		label := c
		if exp.HasSuggestion() && c == *exp.AISuggestedCategory {
			label = fmt.Sprintf("✅ Use '%s'", c)
		}
		buttons = append(buttons, Button{
			Label: label,
			Data:  confirmation.Encode(confirmation.SelectCategory{Key: a.Key, Category: c}),
		})
	}

	var rows [][]Button
	for i := 0; i < len(buttons); i += 2 {
		end := i + 2
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	rows = append(rows, []Button{{
		Label: labelCancelLog,
		Data:  confirmation.Encode(confirmation.CancelAttempt{Key: a.Key}),
	}})

	hint := exp.Description
	if hint == parsing.Placeholder {
		hint = exp.Text
	}
	if hint == "" || hint == parsing.Placeholder {
		hint = "your input"
	}

	var body string
	if exp.HasSuggestion() {
		body = fmt.Sprintf("🤖 My AI suggests category: '%s' (Confidence: %.0f%%).\nFor: '%s'\n\nPlease confirm or choose a different category:",
			*exp.AISuggestedCategory, exp.Confidence()*100, hint)
	} else {
		body = fmt.Sprintf("🤖 My AI couldn't determine a category for: '%s'.\nPlease choose a category:", hint)
	}
	return Reply{Text: body, Buttons: rows}
}

func finalPrompt(a *confirmation.Attempt) Reply {
	exp := &a.Expense
	body := fmt.Sprintf("Please confirm this expense:\n\n💰 Amount: $%s\n🏷️ Category: %s\n📝 Description: %s\n🗓️ Date: %s\n\nIs this correct?",
		exp.Amount.StringFixed(2), exp.Category, exp.Description, exp.Day().Format(longDateLayout))
	return Reply{
		Text: body,
		Buttons: [][]Button{{
			{Label: labelConfirm, Data: confirmation.Encode(confirmation.ConfirmCommit{Key: a.Key})},
			{Label: labelReject, Data: confirmation.Encode(confirmation.ConfirmCancel{Key: a.Key})},
		}},
	}
}

func loggedText(exp *parsing.ParsedExpense) string {
	return fmt.Sprintf("✅ Expense logged successfully!\nAmount: $%s\nCategory: %s\nDescription: %s\nDate: %s",
		exp.Amount.StringFixed(2), exp.Category, exp.Description, exp.Day().Format(longDateLayout))
}
