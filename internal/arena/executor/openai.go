package executor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultXAIBaseURL    = "https://api.x.ai/v1"
)

// ChatCompletionsClient talks to OpenAI-compatible chat completion APIs (OpenAI, xAI)
type ChatCompletionsClient struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIClient creates a client for the OpenAI API
func NewOpenAIClient(baseURL, apiKey string, timeout time.Duration) *ChatCompletionsClient {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return newChatCompletionsClient("openai", baseURL, apiKey, timeout)
}

// NewXAIClient creates a client for the xAI API, which speaks the OpenAI wire format
func NewXAIClient(baseURL, apiKey string, timeout time.Duration) *ChatCompletionsClient {
	if baseURL == "" {
		baseURL = DefaultXAIBaseURL
	}
	return newChatCompletionsClient("xai", baseURL, apiKey, timeout)
}

func newChatCompletionsClient(name, baseURL, apiKey string, timeout time.Duration) *ChatCompletionsClient {
	return &ChatCompletionsClient{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(timeout),
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
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one chat completion request
func (c *ChatCompletionsClient) Complete(ctx context.Context, systemPrompt, userPrompt, modelID string) (string, error) {
	reqBody := chatRequest{
		Model: modelID,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", headers, reqBody, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", fmt.Errorf("%s error: %s", c.name, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices", c.name)
	}
	return resp.Choices[0].Message.Content, nil
}
