package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Provider turns a system prompt and a user prompt into free text
type Provider interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ErrUnavailable is returned by providers that cannot serve any request
var ErrUnavailable = errors.New("advisory service unavailable")

// UnavailableProvider always fails, so annotations fall back to the fixed text.
// It is used when no advisory service is configured.
type UnavailableProvider struct{}

func (UnavailableProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	return "", ErrUnavailable
}

// ChatProvider calls an OpenAI-compatible chat completions endpoint
type ChatProvider struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewChatProvider creates a provider for baseURL (e.g. https://api.openai.com/v1).
// A nil httpClient uses http.DefaultClient; timeouts come from the caller's context.
func NewChatProvider(baseURL, model, apiKey string, httpClient *http.Client) *ChatProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ChatProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *ChatProvider) Complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("chat response has no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
