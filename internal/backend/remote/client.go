// Package remote calls a hosted backend over its HTTP function API. Every
// call is POST {url}/api/{query|mutation} with the function path and JSON
// arguments.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	errors "github.com/frahmantamala/expense-assistant/internal"
	"github.com/frahmantamala/expense-assistant/internal/backend"
	"github.com/shopspring/decimal"
)

const (
	kindQuery    = "query"
	kindMutation = "mutation"

	statusSuccess = "success"
)

type Config struct {
	URL       string
	DeployKey string
	Timeout   time.Duration
}

type Client struct {
	baseURL   string
	deployKey string
	http      *http.Client
	logger    *slog.Logger
}

var _ backend.Backend = (*Client)(nil)

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		deployKey: cfg.DeployKey,
		http:      httpClient,
		logger:    logger,
	}
}

type request struct {
	Path   string      `json:"path"`
	Args   interface{} `json:"args"`
	Format string      `json:"format"`
}

type response struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage"`
}

// outcome is the value shape of mutations that report success in-band.
type outcome struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ExpenseID string `json:"expenseId"`
	Username  string `json:"username"`
}

type wireExpense struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        int64           `json:"date"`
}

func (c *Client) LogExpense(ctx context.Context, req backend.LogExpenseRequest) (*backend.LogExpenseResult, error) {
	args := map[string]interface{}{
		"telegramChatId": req.ChatID,
		"amount":         req.Amount.InexactFloat64(),
		"category":       req.Category,
		"description":    req.Description,
		"date":           req.Date,
	}

	var out outcome
	if err := c.call(ctx, kindMutation, backend.FnLogExpense, args, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, mapMessage(out.Error, errors.ErrCodeCommitFailed)
	}
	return &backend.LogExpenseResult{ExpenseID: out.ExpenseID}, nil
}

func (c *Client) RecordCategoryFeedback(ctx context.Context, fb backend.CategoryFeedback) error {
	args := map[string]interface{}{
		"telegramChatId":        fb.ChatID,
		"original_text_for_ai":  fb.Text,
		"ai_predicted_category": nil,
		"ai_confidence":         nil,
		"user_chosen_category":  fb.FinalCategory,
	}
	if fb.SuggestedCategory != nil {
		args["ai_predicted_category"] = *fb.SuggestedCategory
	}
	if fb.Confidence != nil {
		args["ai_confidence"] = *fb.Confidence
	}
	return c.call(ctx, kindMutation, backend.FnRecordFeedback, args, nil)
}

func (c *Client) GetExpenseSummary(ctx context.Context, req backend.SummaryRequest) (*backend.Summary, error) {
	args := map[string]interface{}{
		"telegramChatId": req.ChatID,
		"startDate":      req.Start,
		"endDate":        req.End,
	}
	if req.Category != "" {
		args["category"] = req.Category
	}

	var out struct {
		Count       int64           `json:"count"`
		TotalAmount decimal.Decimal `json:"totalAmount"`
		Category    *string         `json:"category"`
	}
	if err := c.call(ctx, kindQuery, backend.FnGetExpenseSummary, args, &out); err != nil {
		return nil, err
	}

	s := &backend.Summary{Count: out.Count, TotalAmount: out.TotalAmount.Round(2), Category: req.Category}
	if out.Category != nil {
		s.Category = *out.Category
	}
	return s, nil
}

func (c *Client) GetRecentExpenses(ctx context.Context, chatID string, limit int) ([]backend.Expense, error) {
	args := map[string]interface{}{
		"telegramChatId": chatID,
		"limit":          limit,
	}
	var rows []wireExpense
	if err := c.call(ctx, kindQuery, backend.FnGetRecentExpenses, args, &rows); err != nil {
		return nil, err
	}
	return fromWire(rows), nil
}

func (c *Client) GetExpensesForReport(ctx context.Context, chatID string, start, end int64) ([]backend.Expense, error) {
	args := map[string]interface{}{
		"telegramChatId": chatID,
		"startDate":      start,
		"endDate":        end,
	}
	var rows []wireExpense
	if err := c.call(ctx, kindQuery, backend.FnGetExpensesForReport, args, &rows); err != nil {
		return nil, err
	}
	return fromWire(rows), nil
}

func (c *Client) RegisterUser(ctx context.Context, req backend.RegisterUserRequest) (*backend.RegisterUserResult, error) {
	args := map[string]interface{}{
		"username":       req.Username,
		"password":       req.Password,
		"telegramChatId": req.ChatID,
	}
	var out outcome
	if err := c.call(ctx, kindMutation, backend.FnRegisterUser, args, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, mapMessage(out.Error, errors.ErrCodeValidationFailed)
	}
	username := out.Username
	if username == "" {
		username = req.Username
	}
	return &backend.RegisterUserResult{Username: username}, nil
}

func (c *Client) call(ctx context.Context, kind, path string, args, out interface{}) error {
	body, err := json.Marshal(request{Path: path, Args: args, Format: "json"})
	if err != nil {
		return errors.NewInternalError("failed to encode backend request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+kind, bytes.NewReader(body))
	if err != nil {
		return errors.NewInternalError("failed to build backend request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.deployKey != "" {
		httpReq.Header.Set("Authorization", "Convex "+c.deployKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Error("backend call failed", "path", path, "error", err)
		return errors.ErrBackendUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.ErrBackendUnavailable.WithCause(err)
	}

	c.logger.Debug("backend call",
		"path", path,
		"status_code", resp.StatusCode,
		"took", time.Since(start))

	var decoded response
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return errors.ErrBackendUnavailable.WithCause(fmt.Errorf("%s returned status %d", path, resp.StatusCode))
		}
		return errors.ErrBackendUnavailable.WithCause(fmt.Errorf("decode %s response: %w", path, err))
	}

	if decoded.Status != statusSuccess {
		msg := decoded.ErrorMessage
		if msg == "" {
			msg = fmt.Sprintf("%s failed with status %d", path, resp.StatusCode)
		}
		c.logger.Warn("backend function error", "path", path, "error", msg)
		return mapMessage(msg, errors.ErrCodeBackendUnavailable)
	}

	if out == nil || len(decoded.Value) == 0 || string(decoded.Value) == "null" {
		return nil
	}
	if err := json.Unmarshal(decoded.Value, out); err != nil {
		return errors.ErrBackendUnavailable.WithCause(fmt.Errorf("decode %s value: %w", path, err))
	}
	return nil
}

// mapMessage turns a backend error message into the matching application
// error, keeping the backend's wording for anything unrecognized.
func mapMessage(msg string, fallback errors.ErrorCode) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "user not found"):
		return errors.ErrUserNotFound
	case strings.Contains(lower, "already taken"):
		return errors.ErrUsernameTaken
	case strings.Contains(lower, "already registered"), strings.Contains(lower, "already linked"):
		return errors.ErrChatRegistered
	}
	if msg == "" {
		msg = "backend call failed"
	}
	return errors.NewExternalError(msg, fallback)
}

func fromWire(rows []wireExpense) []backend.Expense {
	out := make([]backend.Expense, len(rows))
	for i, r := range rows {
		out[i] = backend.Expense{
			Amount:      r.Amount,
			Category:    r.Category,
			Description: r.Description,
			Date:        r.Date,
		}
	}
	return out
}
