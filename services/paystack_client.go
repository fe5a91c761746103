// services/paystack_client.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrTransactionNotFound = errors.New("paystack: transaction not found")

type PaystackClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

func NewPaystackClient(baseURL, secretKey string, client *http.Client) *PaystackClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &PaystackClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		Client:    client,
	}
}

// PaystackTransaction is the subset of a Paystack transaction we rely on.
// Metadata stays raw because Paystack sends either an object or an empty string.
type PaystackTransaction struct {
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	PaidAt    *time.Time      `json:"paid_at"`
	Metadata  json.RawMessage `json:"metadata"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// UserID extracts metadata.user_id, tolerating missing or non-object metadata.
func (t *PaystackTransaction) UserID() string {
	if len(t.Metadata) == 0 {
		return ""
	}
	var meta struct {
		UserID string `json:"user_id"`
	}
	if err := json.Unmarshal(t.Metadata, &meta); err != nil {
		return ""
	}
	return strings.TrimSpace(meta.UserID)
}

type verifyResponse struct {
	Status  bool                `json:"status"`
	Message string              `json:"message"`
	Data    PaystackTransaction `json:"data"`
}

// VerifyTransaction calls GET /transaction/verify/:reference. The raw data object is returned for storage.
func (c *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (*PaystackTransaction, []byte, error) {
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.BaseURL, url.PathEscape(reference))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("paystack verify request failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("read paystack response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(string(body)), "not found")) {
		return nil, nil, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("paystack verify returned %d: %.200s", resp.StatusCode, string(body))
	}

	var out verifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, nil, fmt.Errorf("decode paystack response: %w", err)
	}
	if !out.Status {
		return nil, nil, fmt.Errorf("paystack verify failed: %s", out.Message)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(body, &envelope)
	return &out.Data, envelope.Data, nil
}
