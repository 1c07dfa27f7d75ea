package chat

import (
	"bytes"
	"context"
	"encoding/csv"
	stdErrors "errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/backend"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
	"github.com/frahmantamala/expense-assistant/pkg/logger"
)

const (
	defaultDetailsLimit = 5
	minDetailsLimit     = 1
	maxDetailsLimit     = 50

	separatorLine   = "------------------------------------"
	shortDateLayout = "2006-01-02 (Mon)"
	reportLayout    = "2006-01-02"

	msgCategoryUsage = "Please specify a category and optionally a period.\nExample: /category Food & Drink\nExample: /category Shopping last month"
	msgBadLimit      = "Invalid limit. Please provide a number (e.g., /details 10)."
	msgLimitRange    = "Please provide a limit between 1 and 50."
	msgNoExpenses    = "You have no expenses logged yet."
	msgBadPeriod     = "Sorry, I couldn't understand that period. Please try 'this month', 'last month', or a specific month like 'October 2023'."
)

var knownPeriodRe = regexp.MustCompile(`(?i)\b(this month|last month)\b`)

func (s *Service) summary(ctx context.Context, chatID, args string) []Reply {
	category, period := s.splitSummaryArgs(args)

	fetching := "Fetching summary for " + period.Label + "..."
	if category != "" {
		fetching = fmt.Sprintf("Fetching summary for %s in category '%s'...", period.Label, category)
	}

	sum, err := s.backend.GetExpenseSummary(ctx, backend.SummaryRequest{
		ChatID:   chatID,
		Start:    period.StartMillis(),
		End:      period.EndMillis(),
		Category: category,
	})
	if err != nil {
		return []Reply{text(fetching), text(s.queryErrorText(ctx, err, "fetching your summary"))}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Expense Summary for %s:\n", period.Label)
	if sum.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", sum.Category)
	}
	fmt.Fprintf(&b, "Total Expenses: %d\n", sum.Count)
	fmt.Fprintf(&b, "Total Amount: $%s", sum.TotalAmount.StringFixed(2))
	return []Reply{text(fetching), text(b.String())}
}

// splitSummaryArgs reads "[category] [period]". A period is recognised at
// the end of the arguments; whatever precedes it is the category.
func (s *Service) splitSummaryArgs(args string) (string, parsing.Period) {
	today := s.today()

	if loc := knownPeriodRe.FindStringIndex(args); loc != nil {
		period, _ := parsing.ParsePeriod(args[loc[0]:loc[1]], today)
		rest := strings.TrimSpace(args[:loc[0]] + " " + args[loc[1]:])
		return s.canonicalCategory(rest), period
	}

	parts := strings.Fields(args)
	switch len(parts) {
	case 0:
		period, _ := parsing.ParsePeriod(parsing.PeriodThisMonth, today)
		return "", period
	case 1:
		if period, ok := parsing.ParsePeriod(parts[0], today); ok {
			return "", period
		}
		period, _ := parsing.ParsePeriod(parsing.PeriodThisMonth, today)
		return s.canonicalCategory(parts[0]), period
	}

	for _, n := range []int{2, 1} {
		if period, ok := parsing.ParsePeriod(strings.Join(parts[len(parts)-n:], " "), today); ok {
			return s.canonicalCategory(strings.Join(parts[:len(parts)-n], " ")), period
		}
	}
	period, _ := parsing.ParsePeriod(parsing.PeriodThisMonth, today)
	return s.canonicalCategory(strings.Join(parts, " ")), period
}

func (s *Service) canonicalCategory(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := s.categories.Lookup(name); ok {
		return canonical
	}
	return name
}

func (s *Service) categorySummary(ctx context.Context, chatID, args string) []Reply {
	words := strings.Fields(args)
	if len(words) == 0 {
		return []Reply{text(msgCategoryUsage)}
	}

	category, rest := s.matchCategoryPrefix(words)
	periodText := parsing.PeriodThisMonth
	if rest != "" {
		periodText = rest
	}
	period, _ := parsing.ParsePeriod(periodText, s.today())

	fetching := fmt.Sprintf("Fetching summary for category '%s' in %s...", category, period.Label)

	sum, err := s.backend.GetExpenseSummary(ctx, backend.SummaryRequest{
		ChatID:   chatID,
		Start:    period.StartMillis(),
		End:      period.EndMillis(),
		Category: category,
	})
	if err != nil {
		return []Reply{text(fetching), text(s.queryErrorText(ctx, err, "fetching your category summary"))}
	}

	resultCategory := sum.Category
	if resultCategory == "" {
		resultCategory = category
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Expense Summary for Category: %s\n", resultCategory)
	fmt.Fprintf(&b, "Period: %s\n", period.Label)
	fmt.Fprintf(&b, "Total Expenses: %d\n", sum.Count)
	fmt.Fprintf(&b, "Total Amount: $%s", sum.TotalAmount.StringFixed(2))
	if sum.Count == 0 {
		b.WriteString("\n\nNo expenses found for this category in the specified period.")
	}
	return []Reply{text(fetching), text(b.String())}
}

// matchCategoryPrefix finds the longest leading run of words naming a
// known category. Without a match the first word, capitalized, is used.
func (s *Service) matchCategoryPrefix(words []string) (string, string) {
	for i := len(words); i > 0; i-- {
		if name, ok := s.categories.Lookup(strings.Join(words[:i], " ")); ok {
			return name, strings.Join(words[i:], " ")
		}
	}
	first := words[0]
	r, size := utf8.DecodeRuneInString(first)
	return string(unicode.ToUpper(r)) + strings.ToLower(first[size:]), strings.Join(words[1:], " ")
}

func (s *Service) details(ctx context.Context, chatID, args string) []Reply {
	limit := defaultDetailsLimit
	if fields := strings.Fields(args); len(fields) > 0 {
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return []Reply{text(msgBadLimit)}
		}
		if n < minDetailsLimit || n > maxDetailsLimit {
			return []Reply{text(msgLimitRange)}
		}
		limit = n
	}

	fetching := fmt.Sprintf("Fetching your last %d expenses...", limit)

	rows, err := s.backend.GetRecentExpenses(ctx, chatID, limit)
	if err != nil {
		return []Reply{text(fetching), text(s.queryErrorText(ctx, err, "fetching your recent expenses"))}
	}
	if len(rows) == 0 {
		return []Reply{text(fetching), text(msgNoExpenses)}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📜 Your Last %d Expenses:\n%s\n", len(rows), separatorLine)
	for _, e := range rows {
		desc := e.Description
		if desc == "" {
			desc = parsing.Placeholder
		}
		fmt.Fprintf(&b, "🗓️ Date: %s\n💰 Amount: $%s\n🏷️ Category: %s\n📝 Desc: %s\n%s\n",
			time.UnixMilli(e.Date).UTC().Format(shortDateLayout),
			e.Amount.StringFixed(2),
			e.Category,
			desc,
			separatorLine)
	}
	return []Reply{text(fetching), text(strings.TrimRight(b.String(), "\n"))}
}

func (s *Service) report(ctx context.Context, chatID, args string) []Reply {
	periodText := strings.TrimSpace(args)
	if periodText == "" {
		periodText = parsing.PeriodThisMonth
	}

	period, ok := parsing.ParsePeriod(periodText, s.today())
	if !ok {
		return []Reply{text(msgBadPeriod)}
	}

	generating := fmt.Sprintf("Generating your expense report for %s...", periodText)

	rows, err := s.backend.GetExpensesForReport(ctx, chatID, period.StartMillis(), period.EndMillis())
	if err != nil {
		return []Reply{text(generating), text(s.queryErrorText(ctx, err, "generating your report"))}
	}
	if len(rows) == 0 {
		return []Reply{text(generating), text(fmt.Sprintf("No expenses found for the period: %s.", periodText))}
	}

	content, err := RenderCSV(rows)
	if err != nil {
		logger.From(ctx).Error("failed to render report", "error", err, "chat_id", chatID)
		return []Reply{text(generating), text("⚠️ An error occurred while generating your report.")}
	}

	return []Reply{
		text(generating),
		{Document: &Document{
			FileName:    "expense_report_" + period.Key + ".csv",
			ContentType: "text/csv",
			Content:     content,
			Caption:     fmt.Sprintf("Here's your expense report for %s.", periodText),
		}},
	}
}

// RenderCSV writes rows as Date,Category,Amount,Description.
func RenderCSV(rows []backend.Expense) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Date", "Category", "Amount", "Description"}); err != nil {
		return nil, err
	}
	for _, e := range rows {
		record := []string{
			time.UnixMilli(e.Date).UTC().Format(reportLayout),
			e.Category,
			e.Amount.StringFixed(2),
			e.Description,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// queryErrorText maps a backend failure to what the user sees.
func (s *Service) queryErrorText(ctx context.Context, err error, doing string) string {
	if stdErrors.Is(err, errors.ErrUserNotFound) {
		return errors.ErrUserNotFound.Message
	}
	logger.From(ctx).Error("query failed", "error", err, "doing", doing)
	if appErr, ok := errors.IsAppError(err); ok && appErr.Type != errors.ErrorTypeInternal {
		return fmt.Sprintf("⚠️ An error occurred while %s: %s", doing, appErr.Message)
	}
	return fmt.Sprintf("⚠️ An error occurred while %s.", doing)
}
