// Package docsgpt is a minimal client for the DocsGPT answer API.
package docsgpt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arc53/tg-bot-docsgpt-extenstion/internal/conversation"
)

// DefaultAnswer is the user-visible text when a successful response carries
// no answer field.
const DefaultAnswer = "Sorry, I couldn't find an answer."

// Client posts questions to the /api/answer endpoint.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a DocsGPT client for the given API base URL
// (e.g. "https://gptcloud.arc53.com").
func NewClient(apiBase, apiKey string, timeout time.Duration) *Client {
	return &Client{
		apiURL: apiBase + "/api/answer",
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Result is a successful answer with the API's continuation token. The token
// may be empty when the API omits one.
type Result struct {
	Answer         string
	ConversationID string
}

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("docsgpt non-success status=%d body=%s", e.Code, e.Body)
}

// FormatError is a 2xx response whose body could not be decoded.
type FormatError struct {
	Body string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("docsgpt malformed response body=%s", e.Body)
}

type answerRequest struct {
	Question       string  `json:"question"`
	APIKey         string  `json:"api_key"`
	History        string  `json:"history"`
	ConversationID *string `json:"conversation_id"`
}

type answerResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// Answer sends the question with the formatted history. The history travels
// as a JSON-encoded string inside the JSON body (wire contract of the API).
// An empty conversationID is sent as null to start a fresh conversation.
func (c *Client) Answer(ctx context.Context, question string, history []conversation.QAPair, conversationID string) (Result, error) {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal history: %w", err)
	}

	reqBody := answerRequest{
		Question: question,
		APIKey:   c.apiKey,
		History:  string(historyJSON),
	}
	if conversationID != "" {
		reqBody.ConversationID = &conversationID
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal docsgpt request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create docsgpt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("docsgpt request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed reading docsgpt response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 400)}
	}

	var parsed answerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Result{}, &FormatError{Body: truncate(string(body), 400)}
	}

	result := Result{
		Answer:         parsed.Answer,
		ConversationID: parsed.ConversationID,
	}
	if result.Answer == "" {
		result.Answer = DefaultAnswer
	}
	return result, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
