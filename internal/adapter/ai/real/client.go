// Package real implements the AI client against an OpenAI-compatible HTTP
// API: chat completions for generative question writing and evaluation, and
// embeddings for the similarity scorer.
package real

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

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/domain"
)

// Client talks to an OpenAI-compatible API. It retries transient upstream
// failures with exponential backoff and enforces a prompt token budget.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	chatModel    string
	embedModel   string
	maxTokens    int
	promptBudget int
	chatTimeout  time.Duration
	embedTimeout time.Duration

	boMaxElapsed time.Duration
	boInitial    time.Duration
	boMaxIval    time.Duration
	boMultiplier float64
}

// New builds a Client from configuration. The transport is traced.
func New(cfg config.Config) *Client {
	maxElapsed, initial, maxIval, mult := cfg.GetAIBackoffConfig()
	return &Client{
		httpClient:   &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		baseURL:      cfg.AIBaseURL,
		apiKey:       cfg.AIAPIKey,
		chatModel:    cfg.ChatModel,
		embedModel:   cfg.EmbeddingsModel,
		maxTokens:    cfg.AIMaxTokens,
		promptBudget: cfg.AIPromptBudget,
		chatTimeout:  cfg.ChatTimeout,
		embedTimeout: cfg.EmbedTimeout,
		boMaxElapsed: maxElapsed,
		boInitial:    initial,
		boMaxIval:    maxIval,
		boMultiplier: mult,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// ChatJSON sends a system+user prompt pair and returns the raw completion
// text. The model is asked for a JSON object response; callers still validate
// the payload. The user prompt is truncated to the configured token budget.
func (c *Client) ChatJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if used := tokencount.Count(c.chatModel, userPrompt); used > c.promptBudget {
		slog.Warn("prompt over budget, truncating",
			slog.Int("tokens", used), slog.Int("budget", c.promptBudget))
		userPrompt = tokencount.Truncate(c.chatModel, userPrompt, c.promptBudget)
	}
	body, err := json.Marshal(chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0.8,
		MaxTokens:      c.maxTokens,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("op=ai.chat marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.chatTimeout)
	defer cancel()

	raw, err := c.postWithRetry(ctx, "/chat/completions", body)
	observability.ObserveAIRequest("chat", err)
	if err != nil {
		return "", fmt.Errorf("op=ai.chat: %w", err)
	}
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("op=ai.chat decode: %w: %v", domain.ErrSchemaInvalid, err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("op=ai.chat: %w: no choices returned", domain.ErrSchemaInvalid)
	}
	return cr.Choices[0].Message.Content, nil
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("op=ai.embed: %w: no input texts", domain.ErrInvalidArgument)
	}
	body, err := json.Marshal(embedRequest{Model: c.embedModel, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("op=ai.embed marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.embedTimeout)
	defer cancel()

	raw, err := c.postWithRetry(ctx, "/embeddings", body)
	observability.ObserveAIRequest("embeddings", err)
	if err != nil {
		return nil, fmt.Errorf("op=ai.embed: %w", err)
	}
	var er embedResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		return nil, fmt.Errorf("op=ai.embed decode: %w: %v", domain.ErrSchemaInvalid, err)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("op=ai.embed: %w: expected %d vectors, got %d", domain.ErrSchemaInvalid, len(texts), len(er.Data))
	}
	vecs := make([][]float32, len(texts))
	for _, d := range er.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("op=ai.embed: %w: vector index %d out of range", domain.ErrSchemaInvalid, d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// postWithRetry POSTs JSON and retries transient failures. Rate limits and
// 5xx responses are retried under the configured backoff; other client errors
// are permanent.
func (c *Client) postWithRetry(ctx context.Context, path string, body []byte) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.boInitial
	bo.MaxInterval = c.boMaxIval
	bo.MaxElapsedTime = c.boMaxElapsed
	bo.Multiplier = c.boMultiplier

	var out []byte
	attempt := 0
	op := func() error {
		attempt++
		res, err := c.post(ctx, path, body)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err))
			}
			return err
		}
		out = res
		return nil
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("upstream call failed, retrying",
			slog.String("path", path),
			slog.Int("attempt", attempt),
			slog.Duration("next_retry_in", next),
			slog.Any("error", err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusOK:
		return raw, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status=429", domain.ErrUpstreamRateLimit)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("upstream status=%d", resp.StatusCode)
	default:
		return nil, backoff.Permanent(fmt.Errorf("upstream status=%d body=%s", resp.StatusCode, truncateBody(raw)))
	}
}

func truncateBody(b []byte) string {
	const max = 256
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}
