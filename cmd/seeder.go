package cmd

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/expense"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
	"github.com/frahmantamala/expense-assistant/internal/user"
)

var (
	seedUsername string
	seedPassword string
	seedChatID   string
	seedExpenses bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with a demo account",
	Long:  `Register a demo user linked to a chat id and optionally log sample expenses for it.`,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedUsername, "username", "demo", "demo account username")
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "demo account password")
	seedCmd.Flags().StringVar(&seedChatID, "chat-id", "1000", "chat id linked to the demo account")
	seedCmd.Flags().BoolVar(&seedExpenses, "expenses", true, "also log sample expenses for this month")
}

type sampleExpense struct {
	amount      string
	category    string
	description string
	daysAgo     int
}

var sampleExpenses = []sampleExpense{
	{"4.50", "Food & Drink", "coffee", 0},
	{"20.00", "Food & Drink", "lunch with team", 1},
	{"35.75", "Transport", "taxi to airport", 2},
	{"89.99", "Shopping", "running shoes", 3},
	{"60.00", "Utilities", "electricity bill", 5},
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Backend.Mode = internal.BackendModeLocal
	lg := newCLILogger(cfg.Observability.Logging.Level)

	app, err := buildApp(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer app.Shutdown(context.Background())

	u, err := app.Users.Register(ctx, user.RegisterDTO{
		Username: seedUsername,
		Password: seedPassword,
		ChatID:   seedChatID,
	})
	switch {
	case err == nil:
		fmt.Println("Seeded user:", u.Username, "chat:", u.ChatID)
	case stdErrors.Is(err, internal.ErrChatRegistered), stdErrors.Is(err, internal.ErrUsernameTaken):
		fmt.Println("demo user already exists; skipping registration")
	default:
		return fmt.Errorf("failed to seed user: %w", err)
	}

	if !seedExpenses {
		return nil
	}

	dates := parsing.NewDateResolver(time.UTC, time.Now)
	today := dates.Today()
	for _, s := range sampleExpenses {
		exp, err := app.Expenses.LogExpense(ctx, expense.LogExpenseDTO{
			ChatID:      seedChatID,
			Amount:      decimal.RequireFromString(s.amount),
			Category:    s.category,
			Description: s.description,
			Date:        parsing.Millis(today.AddDate(0, 0, -s.daysAgo)),
		})
		if err != nil {
			return fmt.Errorf("failed to seed expense %q: %w", s.description, err)
		}
		fmt.Printf("Seeded expense #%d: %s %s (%s)\n", exp.ID, exp.Amount.StringFixed(2), exp.Description, exp.Category)
	}
	return nil
}
