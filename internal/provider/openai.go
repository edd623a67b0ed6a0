package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint,
// including local Ollama servers exposing /v1.
type OpenAIProvider struct {
	name        string
	baseURL     string
	httpClient  *http.Client
	model       string
	temperature float64
	apiKey      string
}

// NewOpenAI creates a provider for an OpenAI-compatible endpoint. The API
// key is read from OPENAI_API_KEY and omitted when unset, which local
// servers accept.
func NewOpenAI(endpoint, model string, temperature float64) *OpenAIProvider {
	return &OpenAIProvider{
		name:        "openai",
		baseURL:     strings.TrimRight(endpoint, "/") + "/v1",
		httpClient:  &http.Client{},
		model:       model,
		temperature: temperature,
		apiKey:      os.Getenv("OPENAI_API_KEY"),
	}
}

type openAIFactory struct{}

func (openAIFactory) Name() string { return "openai" }

func (openAIFactory) Create(endpoint, model string, temperature float64) Provider {
	return NewOpenAI(endpoint, model, temperature)
}

func (p *OpenAIProvider) Name() string {
	return p.name
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const maxCompletionTokens = 400

var retryDelays = []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}

// Chat sends the messages and returns the first choice's content. Transient
// upstream failures are retried with increasing delays.
func (p *OpenAIProvider) Chat(ctx context.Context, messages []Message) (string, error) {
	reqMessages := make([]chatMessage, len(messages))
	for i, m := range messages {
		reqMessages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	body, err := json.Marshal(chatRequest{
		Model:       p.model,
		Messages:    reqMessages,
		MaxTokens:   maxCompletionTokens,
		Temperature: float32(p.temperature),
	})
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		if attempt > 0 {
			delay := retryDelays[attempt-1]
			log.Warn().Str("provider", p.name).Int("attempt", attempt).Dur("delay", delay).
				Msg("Retrying chat request after transient error")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		content, retryErr, err := p.attempt(ctx, body)
		if err != nil {
			return "", err
		}
		if retryErr != nil {
			lastErr = retryErr
			continue
		}
		return content, nil
	}
	return "", fmt.Errorf("chat request failed after %d retries: %w", len(retryDelays), lastErr)
}

func (p *OpenAIProvider) attempt(ctx context.Context, body []byte) (string, error, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", nil, err
		}
		return "", err, nil
	}
	defer resp.Body.Close()

	if isTransientStatus(resp.StatusCode) {
		payload, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat request status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return "", nil, fmt.Errorf("chat request status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil, err
	}
	if len(out.Choices) == 0 {
		return "", nil, errors.New("chat response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil, nil
}

func isTransientStatus(code int) bool {
	return code == 429 || code == 500 || code == 502 || code == 503 || code == 504
}

func (p *OpenAIProvider) Close() error {
	if p.httpClient != nil {
		p.httpClient.CloseIdleConnections()
	}
	return nil
}
