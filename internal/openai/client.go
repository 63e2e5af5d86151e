package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	systemPrompt = "You are a helpful assistant that generates thoughtful, relevant comments about text messages. Keep your responses concise and engaging."
	userPrompt   = "Please generate a thoughtful comment about this message: %q"
)

// CompletionError reports a failed or empty chat completion. The command
// dispatcher catches it and substitutes an apology reply.
type CompletionError struct {
	Status  int
	Message string
}

func (e *CompletionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("openai http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("openai: %s", e.Message)
}

// Config for OpenAI client
type Config struct {
	BaseURL   string // e.g., https://api.openai.com
	Model     string
	MaxTokens int
}

// Client is a minimal OpenAI API client. Keys are passed per call because each
// bot account carries its own key.
type Client struct {
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// NewClient creates a new OpenAI API client
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateComment asks the model to comment on sourceText and returns the
// trimmed completion. Failures are reported as *CompletionError.
func (c *Client) GenerateComment(ctx context.Context, apiKey, sourceText string) (string, error) {
	body := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPrompt, sourceText)},
		},
		MaxTokens: c.maxTokens,
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &CompletionError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &CompletionError{Message: err.Error()}
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &CompletionError{Status: resp.StatusCode, Message: "unparseable response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(raw)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", &CompletionError{Status: resp.StatusCode, Message: msg}
	}

	if len(out.Choices) == 0 {
		return "", &CompletionError{Status: resp.StatusCode, Message: "empty choices"}
	}

	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// ValidateKey probes the key against the model listing endpoint. It is a leaf
// capability check and never returns an error, only false.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
