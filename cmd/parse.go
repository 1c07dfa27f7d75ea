package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/expense-assistant/internal/category"
	"github.com/frahmantamala/expense-assistant/internal/intent"
	"github.com/frahmantamala/expense-assistant/internal/nlp"
	"github.com/frahmantamala/expense-assistant/internal/parsing"
)

var (
	parseRules    string
	parseTimezone string
)

var parseCmd = &cobra.Command{
	Use:   `parse "<text>"`,
	Short: "Print what the assistant extracts from a message",
	Long:  `Runs amount, date, description and keyword category extraction plus intent detection locally, without network calls.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseRules, "rules", "", "category rules YAML file, defaults to the built-in table")
	parseCmd.Flags().StringVar(&parseTimezone, "tz", "UTC", "timezone used to resolve relative dates")
}

type parseOutput struct {
	Intent   intent.Intent          `json:"intent"`
	Entities []nlp.Entity           `json:"entities"`
	Expense  *parsing.ParsedExpense `json:"expense,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

func runParse(_ *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	lg := newCLILogger("warn")

	loc, err := time.LoadLocation(parseTimezone)
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	table, err := category.LoadTable(parseRules)
	if err != nil {
		return err
	}

	processor := nlp.NewProcessor()
	pipeline := parsing.NewPipeline(
		processor,
		category.NewKeywordClassifier(table, processor),
		parsing.NewDateResolver(loc, time.Now),
		table.Default,
		lg,
		nil,
	)

	out := parseOutput{
		Intent:   intent.NewClassifier(processor, lg).Classify(text),
		Entities: pipeline.Analyze(text).Entities,
	}
	parsed, err := pipeline.Parse(context.Background(), text)
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Expense = parsed
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
