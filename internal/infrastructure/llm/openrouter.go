package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vitos/crypto_scalper/internal/domain"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "deepseek/deepseek-chat"
)

type Config struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Client      *http.Client
}

func NewChatClient(cfg Config) *ChatClient {
	u := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if u == "" {
		u = DefaultBaseURL
	}
	m := strings.TrimSpace(cfg.Model)
	if m == "" {
		m = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ChatClient{
		BaseURL:     u,
		Model:       m,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		Client:      &http.Client{Timeout: timeout},
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type ChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *ChatClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	b, err := json.Marshal(ChatRequest{Model: c.Model, Messages: messages, Temperature: c.Temperature})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out ChatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

type strategistInput struct {
	CurrentStrategy json.RawMessage          `json:"current_strategy"`
	RecentTradeLog  string                   `json:"recent_trade_log"`
	MarketAnalysis  []*domain.MarketSnapshot `json:"broader_market_analysis"`
}

// ProposeStrategy asks the model for a full replacement strategy document.
func (c *ChatClient) ProposeStrategy(ctx context.Context, current []byte, tradeLog string, analyses []*domain.MarketSnapshot) ([]byte, error) {
	input, err := json.MarshalIndent(strategistInput{
		CurrentStrategy: current,
		RecentTradeLog:  tradeLog,
		MarketAnalysis:  analyses,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal strategist input: %w", err)
	}

	reply, err := c.Complete(ctx, []ChatMessage{
		{Role: "system", Content: strategistSystemPrompt},
		{Role: "user", Content: string(input)},
	})
	if err != nil {
		return nil, err
	}

	doc, err := ExtractFirstJSONObject(reply)
	if err != nil {
		return nil, fmt.Errorf("strategy from model reply: %w", err)
	}
	return doc, nil
}
