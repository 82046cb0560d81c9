package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every generative-text call. Past it the intent
// resolves to its fallback exactly as on a hard failure.
const DefaultTimeout = 10 * time.Second

// Client talks to an OpenAI-compatible chat-completions endpoint. An empty
// API key puts the client in fallback-only mode: no request is ever sent and
// every intent returns its fixed string immediately.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
	}
}

// Enabled reports whether outbound calls are configured at all.
func (c *Client) Enabled() bool {
	return c.apiKey != "" && c.baseURL != ""
}

func (c *Client) WelcomeMessage(ctx context.Context, learnerName, subject string) string {
	return c.generateOrFallback(ctx,
		welcomeInstruction(subject),
		fmt.Sprintf("User: %s. Context: Safe learning start.", learnerName),
		FallbackWelcome)
}

func (c *Client) ScaffoldingHint(ctx context.Context, problem, fieldLabel, reasoning string) string {
	return c.generateOrFallback(ctx,
		scaffoldInstruction,
		fmt.Sprintf("Context Problem: %s. Area: %s. Student reasoning: %q", problem, fieldLabel, reasoning),
		FallbackScaffold)
}

func (c *Client) ReflectionPrompt(ctx context.Context, score int) string {
	return c.generateOrFallback(ctx,
		reflectionInstruction,
		fmt.Sprintf("A student just finished a Fact Test. Score is irrelevant (%d/100).", score),
		FallbackReflection)
}

func (c *Client) generateOrFallback(ctx context.Context, instruction, content, fallback string) string {
	if !c.Enabled() {
		return fallback
	}
	text, err := c.complete(ctx, instruction, content)
	if err != nil {
		log.Printf("ai call failed, using fallback: %v", err)
		return fallback
	}
	if strings.TrimSpace(text) == "" {
		return fallback
	}
	return text
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, instruction, content string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: content},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}
