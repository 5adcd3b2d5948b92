package executor

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	DefaultGoogleBaseURL = "https://generativelanguage.googleapis.com"
	googleScope          = "https://www.googleapis.com/auth/generative-language"
)

// GoogleClient talks to the Gemini generateContent API.
// It authenticates with an API key, or with an oauth2 token source when no key is set.
type GoogleClient struct {
	baseURL     string
	apiKey      string
	tokenSource oauth2.TokenSource
	httpClient  *http.Client
}

// NewGoogleClient creates a client authenticated with an API key
func NewGoogleClient(baseURL, apiKey string, timeout time.Duration) *GoogleClient {
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}
	return &GoogleClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(timeout),
	}
}

// NewGoogleClientWithDefaultCredentials uses Application Default Credentials
func NewGoogleClientWithDefaultCredentials(ctx context.Context, baseURL string, timeout time.Duration) (*GoogleClient, error) {
	ts, err := google.DefaultTokenSource(ctx, googleScope)
	if err != nil {
		return nil, fmt.Errorf("find default credentials: %w", err)
	}
	c := NewGoogleClient(baseURL, "", timeout)
	c.tokenSource = ts
	return c, nil
}

type googlePart struct {
	Text string `json:"text"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleRequest struct {
	SystemInstruction googleContent   `json:"systemInstruction"`
	Contents          []googleContent `json:"contents"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends one generateContent request
func (c *GoogleClient) Complete(ctx context.Context, systemPrompt, userPrompt, modelID string) (string, error) {
	reqBody := googleRequest{
		SystemInstruction: googleContent{Parts: []googlePart{{Text: systemPrompt}}},
		Contents: []googleContent{
			{Role: "user", Parts: []googlePart{{Text: userPrompt}}},
		},
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["x-goog-api-key"] = c.apiKey
	} else if c.tokenSource != nil {
		tok, err := c.tokenSource.Token()
		if err != nil {
			return "", fmt.Errorf("google: token: %w", err)
		}
		headers["Authorization"] = "Bearer " + tok.AccessToken
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(modelID))

	var resp googleResponse
	if err := postJSON(ctx, c.httpClient, endpoint, headers, reqBody, &resp); err != nil {
		return "", fmt.Errorf("google: %w", err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return "", fmt.Errorf("google error: %s", resp.Error.Message)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("google: response has no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
