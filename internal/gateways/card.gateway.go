// Package gateway is the HTTP client the POS terminal uses to reach
// the card gateway API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/valyala/fasthttp"
)

var (
	ErrCardNotFound = errors.New("card not found")
	// ErrRejected covers 4xx refusals: insufficient balance, blocked
	// card, duplicate request. The message carries the API's reason.
	ErrRejected = errors.New("request rejected")
)

type ClientConfig struct {
	BaseURL        string
	Timeout        time.Duration
	MaxConnsPerHost int
}

func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:         baseURL,
		Timeout:         5 * time.Second,
		MaxConnsPerHost: 64,
	}
}

type Client struct {
	config ClientConfig
	client *fasthttp.Client
}

func NewClient(config ClientConfig) *Client {
	return &Client{
		config: config,
		client: &fasthttp.Client{
			MaxConnsPerHost:     config.MaxConnsPerHost,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
	}
}

type purchaseRequest struct {
	Amount  int64 `json:"amount"`
	IsTopUp bool  `json:"is_top_up"`
}

type transactionPage struct {
	Items []*model.Transaction `json:"items"`
	Total int64                `json:"total"`
}

type apiError struct {
	Error string `json:"error"`
}

// GetCard fetches the card row for a scanned barcode.
func (c *Client) GetCard(ctx context.Context, barcode string) (*model.Card, error) {
	body, err := c.doRequest(ctx, "GET", "/api/v1/cards/"+barcode, nil, "")
	if err != nil {
		return nil, err
	}

	var card model.Card
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card: %w", err)
	}
	return &card, nil
}

// ListTransactions fetches the card's ledger history, newest first.
func (c *Client) ListTransactions(ctx context.Context, barcode string) ([]*model.Transaction, error) {
	body, err := c.doRequest(ctx, "GET", "/api/v1/cards/"+barcode+"/transactions?order=desc", nil, "")
	if err != nil {
		return nil, err
	}

	var page transactionPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
	}
	return page.Items, nil
}

// Purchase debits amount from the card. requestID makes retries of the
// same sale idempotent on the gateway side.
func (c *Client) Purchase(ctx context.Context, barcode string, amount int64, requestID string) (*model.MutationResult, error) {
	payload, err := json.Marshal(purchaseRequest{Amount: amount, IsTopUp: false})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal purchase: %w", err)
	}

	body, err := c.doRequest(ctx, "POST", "/api/v1/cards/"+barcode+"/top-up", payload, requestID)
	if err != nil {
		return nil, err
	}

	var result model.MutationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

// Health pings the gateway.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/api/v1/health", nil, "")
	return err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, requestID string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	statusCode := resp.StatusCode()
	if statusCode >= fasthttp.StatusOK && statusCode < fasthttp.StatusMultipleChoices {
		result := make([]byte, len(resp.Body()))
		copy(result, resp.Body())
		return result, nil
	}

	var apiErr apiError
	_ = json.Unmarshal(resp.Body(), &apiErr)
	if apiErr.Error == "" {
		apiErr.Error = fmt.Sprintf("unexpected status code: %d", statusCode)
	}

	switch statusCode {
	case fasthttp.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrCardNotFound, apiErr.Error)
	case fasthttp.StatusBadRequest, fasthttp.StatusConflict,
		fasthttp.StatusUnprocessableEntity, fasthttp.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", ErrRejected, apiErr.Error)
	default:
		return nil, fmt.Errorf("gateway error %d: %s", statusCode, apiErr.Error)
	}
}
