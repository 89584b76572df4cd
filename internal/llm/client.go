package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/cognicore/postmeta/pkg/postmeta"
)

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Client calls an OpenAI-compatible chat completion endpoint.
type Client struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature *float64

	HTTPClient *http.Client
	Retry      RetryConfig
	Logger     *slog.Logger
}

// RetryConfig bounds the retries for transient HTTP failures (transport
// errors, 429, 5xx). The zero value means DefaultRetryConfig; a negative
// MaxRetries disables retrying.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns the retry settings used when none are given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
	}
}

// StatusError is returned for a non-2xx reply that was not retried away.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm: status %d: %s", e.Code, e.Body)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// httpResult is a fully read reply, so retried attempts never leak bodies.
type httpResult struct {
	status int
	body   []byte
}

var _ postmeta.Invoker = (*Client)(nil)

// Invoke sends prompt as a single user message.
func (c *Client) Invoke(ctx context.Context, prompt string) (postmeta.Response, error) {
	content, err := c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return postmeta.Response{}, err
	}
	return postmeta.Response{Content: content}, nil
}

// Chat sends a system and a user message and returns the reply content.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}})
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	if c.BaseURL == "" || c.Model == "" {
		return "", fmt.Errorf("llm: base URL and model required")
	}
	payload, err := c.send(ctx, messages)
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	content := payload.Choices[0].Message.Content
	c.logger().Log(ctx, LevelTrace, "response content", "content", content)
	return content, nil
}

func (c *Client) send(ctx context.Context, messages []chatMessage) (*chatResponse, error) {
	reqBody, err := json.Marshal(chatRequest{Model: c.Model, Messages: messages, Temperature: c.Temperature})
	if err != nil {
		return nil, err
	}
	c.logger().Log(ctx, LevelTrace, "request payload", "json", string(reqBody))

	attempt := 0
	start := time.Now()
	res, err := failsafe.With(c.retryPolicy()).WithContext(ctx).Get(func() (*httpResult, error) {
		attempt++
		if attempt > 1 {
			c.logger().Debug("retrying model request", "attempt", attempt)
		}
		return c.do(ctx, reqBody)
	})
	if res == nil {
		if err == nil {
			err = errors.New("no response")
		}
		return nil, fmt.Errorf("llm: %w", err)
	}
	c.logger().Debug("model request finished",
		"status", res.status,
		"attempts", attempt,
		"elapsed", time.Since(start),
	)

	if res.status < 200 || res.status > 299 {
		return nil, &StatusError{Code: res.status, Body: truncate(string(res.body), 300)}
	}

	var payload chatResponse
	if err := json.Unmarshal(res.body, &payload); err != nil {
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	return &payload, nil
}

func (c *Client) do(ctx context.Context, body []byte) (*httpResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &httpResult{status: resp.StatusCode, body: data}, nil
}

func (c *Client) retryPolicy() retrypolicy.RetryPolicy[*httpResult] {
	cfg := c.Retry
	if cfg == (RetryConfig{}) {
		cfg = DefaultRetryConfig()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}

	return retrypolicy.NewBuilder[*httpResult]().
		WithBackoff(cfg.BaseDelay, cfg.MaxDelay).
		WithMaxRetries(cfg.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(shouldRetry).
		ReturnLastFailure().
		Build()
}

func shouldRetry(res *httpResult, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	if res == nil {
		return true
	}
	return res.status == http.StatusTooManyRequests || res.status >= 500
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
