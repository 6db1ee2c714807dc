// Package ai proxies chat requests to an OpenAI-compatible completion
// endpoint, typically a local model server. In-flight upstream calls are
// capped so a slow model cannot absorb the whole HTTP worker pool.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// ErrBusy is returned when the in-flight cap is reached and the caller's
// context expires before a slot frees up.
var ErrBusy = errors.New("ai: too many requests in flight")

// ErrEmptyCompletion is returned when the upstream answers without choices.
var ErrEmptyCompletion = errors.New("ai: upstream returned no choices")

// Message is a single chat turn in the OpenAI wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	slots      chan struct{}
	logger     *log.Logger
}

func NewClient(baseURL, model string, maxInflight int, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if maxInflight < 1 {
		maxInflight = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		slots:      make(chan struct{}, maxInflight),
		logger:     logger,
	}
}

// Chat forwards the conversation and returns the assistant's reply. It
// blocks for a free slot until the caller's context is done.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	select {
	case c.slots <- struct{}{}:
		defer func() { <-c.slots }()
	case <-ctx.Done():
		return "", ErrBusy
	}

	reqBody := struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}{Model: c.model, Messages: messages}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var completion struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	c.logger.Printf("ai: completion model=%s took=%s", c.model, time.Since(start).Round(time.Millisecond))
	return completion.Choices[0].Message.Content, nil
}
