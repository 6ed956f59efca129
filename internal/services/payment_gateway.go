package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentGateway is the settlement side of the external payment provider. The
// core only creates intents and confirms them; card and wallet protocol
// details stay on the provider's side.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount decimal.Decimal) (string, error)
	Confirm(ctx context.Context, providerTxnID string, amount decimal.Decimal) (*GatewayResult, error)
}

type GatewayResult struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

const gatewayStatusSucceeded = "succeeded"

type HTTPPaymentGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPPaymentGateway(baseURL, apiKey string) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}
}

func (g *HTTPPaymentGateway) CreateIntent(ctx context.Context, amount decimal.Decimal) (string, error) {
	body, err := g.post(ctx, "/v1/intents", map[string]any{"amount": amount.StringFixed(2)})
	if err != nil {
		return "", err
	}

	var result GatewayResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode intent response: %w", err)
	}
	if result.TransactionID == "" {
		return "", fmt.Errorf("intent response missing transaction id")
	}
	return result.TransactionID, nil
}

func (g *HTTPPaymentGateway) Confirm(ctx context.Context, providerTxnID string, amount decimal.Decimal) (*GatewayResult, error) {
	body, err := g.post(ctx, "/v1/intents/"+providerTxnID+"/confirm", map[string]any{
		"amount": amount.StringFixed(2),
	})
	if err != nil {
		return nil, err
	}

	var result GatewayResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode confirm response: %w", err)
	}
	return &result, nil
}

func (g *HTTPPaymentGateway) post(ctx context.Context, path string, payload map[string]any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("gateway: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// OfflinePaymentGateway approves everything with synthetic transaction ids.
// Used in development and tests when no provider is configured.
type OfflinePaymentGateway struct{}

func NewOfflinePaymentGateway() *OfflinePaymentGateway {
	return &OfflinePaymentGateway{}
}

func (*OfflinePaymentGateway) CreateIntent(_ context.Context, _ decimal.Decimal) (string, error) {
	return "offline-" + uuid.NewString(), nil
}

func (*OfflinePaymentGateway) Confirm(_ context.Context, providerTxnID string, _ decimal.Decimal) (*GatewayResult, error) {
	return &GatewayResult{TransactionID: providerTxnID, Status: gatewayStatusSucceeded}, nil
}
