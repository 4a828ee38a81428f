// Package classify calls the OpenAI chat completions API to categorize
// emails into the fixed leadbox category set.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/leadbox/leadbox/internal/models"
)

const defaultBaseURL = "https://api.openai.com/v1"

// bodyPreviewLimit caps how much of the body is sent to the model.
const bodyPreviewLimit = 1000

const systemPrompt = `You are an email categorization AI. Analyze the following email and categorize it into one of these categories:

1. Interested - The sender shows interest in the product/service, asks questions, or wants to learn more
2. Meeting Booked - The email confirms or proposes a specific meeting time/date
3. Not Interested - The sender explicitly declines, opts out, or shows no interest
4. Spam - Irrelevant marketing, phishing attempts, or automated spam
5. Out of Office - Automated out-of-office or vacation reply

Respond ONLY with a JSON object in this format:
{"category": "one of the categories above", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`

// Result is one classification outcome.
type Result struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Client calls the OpenAI API. Requests are bounded by the HTTP client
// timeout so a stuck model call cannot stall ingestion.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a classifier client with a 30-second request timeout.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   "gpt-3.5-turbo",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a classifier client against a non-default API
// endpoint (used in tests).
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
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

// Classify categorizes one email by subject and body. A transport or API
// failure is returned as an error; a response the model garbles (invalid JSON
// or an unknown category) degrades to {Spam, 0.5} instead.
func (c *Client) Classify(ctx context.Context, subject, body string) (*Result, error) {
	if len(body) > bodyPreviewLimit {
		body = body[:bodyPreviewLimit]
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Subject: %s\n\nBody: %s", subject, body)},
		},
		Temperature: 0.3,
		MaxTokens:   200,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return fallbackResult(), nil
	}

	var result Result
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &result); err != nil {
		return fallbackResult(), nil
	}

	if !models.IsValidCategory(result.Category) {
		return fallbackResult(), nil
	}

	if result.Confidence == 0 {
		result.Confidence = 0.8
	}

	return &result, nil
}

func fallbackResult() *Result {
	return &Result{Category: models.CategorySpam, Confidence: 0.5}
}
