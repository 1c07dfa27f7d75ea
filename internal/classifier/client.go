// Package classifier is the HTTP client of the remote category prediction
// service.
package classifier

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

	"github.com/frahmantamala/expense-assistant/internal/category"
)

const (
	predictPath    = "/predict_category"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements category.Classifier over POST {base}/predict_category.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	PredictedCategory *string  `json:"predicted_category"`
	Confidence        *float64 `json:"confidence"`
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + predictPath,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Predict never fails; transport errors, non-2xx statuses and malformed
// bodies all yield a Prediction with OK false.
func (c *Client) Predict(ctx context.Context, text string) category.Prediction {
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("empty text for category prediction")
		return category.NoPrediction()
	}

	pred, err := c.predict(ctx, text)
	if err != nil {
		c.logger.Error("category prediction failed", "endpoint", c.endpoint, "error", err)
		return category.NoPrediction()
	}

	c.logger.Info("category predicted",
		"category", pred.Category,
		"confidence", pred.Confidence)
	return pred
}

func (c *Client) predict(ctx context.Context, text string) (category.Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return category.Prediction{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return category.Prediction{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return category.Prediction{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return category.Prediction{}, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out predictResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return category.Prediction{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.PredictedCategory == nil || out.Confidence == nil {
		return category.Prediction{}, fmt.Errorf("response missing predicted_category or confidence")
	}
	if strings.TrimSpace(*out.PredictedCategory) == "" {
		return category.Prediction{}, fmt.Errorf("response has empty predicted_category")
	}
	if *out.Confidence < 0 || *out.Confidence > 1 {
		return category.Prediction{}, fmt.Errorf("confidence %v out of range", *out.Confidence)
	}

	return category.Prediction{
		Category:   strings.TrimSpace(*out.PredictedCategory),
		Confidence: *out.Confidence,
		OK:         true,
	}, nil
}
