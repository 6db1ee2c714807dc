// Package sumup is a thin JSON client for the SumUp checkout API. Handlers
// proxy requests through it mostly verbatim; the client only fills in the
// merchant code and a generated checkout reference.
package sumup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	apiKey       string
	baseURL      string
	merchantCode string
	httpClient   *http.Client
	logger       *log.Logger
}

func NewClient(apiKey, baseURL, merchantCode string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		merchantCode: merchantCode,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// Checkout is the remote checkout resource. Raw API fields are passed
// through untouched so the frontend widget sees what SumUp sent.
type Checkout struct {
	ID                string          `json:"id"`
	CheckoutReference string          `json:"checkout_reference"`
	Amount            float64         `json:"amount"`
	Currency          string          `json:"currency"`
	MerchantCode      string          `json:"merchant_code"`
	Description       string          `json:"description,omitempty"`
	Status            string          `json:"status"`
	Date              string          `json:"date,omitempty"`
	Transactions      json.RawMessage `json:"transactions,omitempty"`
}

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sumup: status %d: %s", e.StatusCode, e.Message)
}

type CreateCheckoutParams struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description,omitempty"`
	ReturnURL   string  `json:"return_url,omitempty"`
}

func (c *Client) CreateCheckout(ctx context.Context, p CreateCheckoutParams) (*Checkout, error) {
	body := struct {
		CreateCheckoutParams
		CheckoutReference string `json:"checkout_reference"`
		MerchantCode      string `json:"merchant_code"`
	}{
		CreateCheckoutParams: p,
		CheckoutReference:    uuid.NewString(),
		MerchantCode:         c.merchantCode,
	}
	var out Checkout
	if err := c.do(ctx, http.MethodPost, "/v0.1/checkouts", body, &out); err != nil {
		return nil, err
	}
	c.logger.Printf("sumup: created checkout id=%s reference=%s", out.ID, out.CheckoutReference)
	return &out, nil
}

func (c *Client) GetCheckout(ctx context.Context, id string) (*Checkout, error) {
	var out Checkout
	if err := c.do(ctx, http.MethodGet, "/v0.1/checkouts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessCheckout submits payment details for an existing checkout. The
// details map is forwarded as-is (card payloads, payment_type and so on).
func (c *Client) ProcessCheckout(ctx context.Context, id string, details map[string]interface{}) (*Checkout, error) {
	var out Checkout
	if err := c.do(ctx, http.MethodPut, "/v0.1/checkouts/"+url.PathEscape(id), details, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeactivateCheckout(ctx context.Context, id string) (*Checkout, error) {
	var out Checkout
	if err := c.do(ctx, http.MethodDelete, "/v0.1/checkouts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PaymentMethods lists the methods available to the configured merchant for
// the given amount and currency. Amount and currency may be empty.
func (c *Client) PaymentMethods(ctx context.Context, amount, currency string) (json.RawMessage, error) {
	path := "/v0.1/merchants/" + url.PathEscape(c.merchantCode) + "/payment-methods"
	q := url.Values{}
	if amount != "" {
		q.Set("amount", amount)
	}
	if currency != "" {
		q.Set("currency", currency)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := extractErrorMessage(raw)
		c.logger.Printf("sumup: %s %s status=%d message=%q", method, path, resp.StatusCode, msg)
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func extractErrorMessage(raw []byte) string {
	var payload struct {
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.ErrorDescription != "" {
			return payload.ErrorDescription
		}
	}
	return strings.TrimSpace(string(raw))
}
