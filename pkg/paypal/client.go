// Package paypal is a minimal client for the PayPal v2 Checkout API: a
// client-credentials token exchange, order creation and order capture. Only
// the fields this service reads are modeled.
package paypal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"

	// OrderCompleted is the provider's terminal status for a captured order.
	OrderCompleted = "COMPLETED"
)

type Config struct {
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
	Live         bool   `yaml:"live"`
}

type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	httpClient   *http.Client
}

func NewClient(cfg Config) *Client {
	baseURL := SandboxBaseURL
	if cfg.Live {
		baseURL = LiveBaseURL
	}

	return &Client{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

type OrderRequest struct {
	Value        string
	CurrencyCode string
	Description  string
	CustomID     string
	ReturnURL    string
	CancelURL    string
}

type Order struct {
	ID         string
	Status     string
	ApproveURL string
}

type CaptureResult struct {
	OrderID   string
	Status    string
	CustomID  string
	CaptureID string
}

// APIError carries the provider's diagnostic text for non-success responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error parsing token response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access_token")
	}

	return result.AccessToken, nil
}

type orderWire struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Payments struct {
			Captures []struct {
				ID       string `json:"id"`
				Status   string `json:"status"`
				CustomID string `json:"custom_id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
	Links []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

func (c *Client) CreateOrder(ctx context.Context, order *OrderRequest) (*Order, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"description": order.Description,
				"custom_id":   order.CustomID,
				"amount": map[string]string{
					"currency_code": order.CurrencyCode,
					"value":         order.Value,
				},
			},
		},
		"application_context": map[string]string{
			"return_url": order.ReturnURL,
			"cancel_url": order.CancelURL,
		},
	}

	body, err := c.postJSON(ctx, "/v2/checkout/orders", token, payload)
	if err != nil {
		return nil, fmt.Errorf("order creation failed: %w", err)
	}

	var wire orderWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("error parsing order response: %w", err)
	}

	result := &Order{ID: wire.ID, Status: wire.Status}
	for _, link := range wire.Links {
		if link.Rel == "approve" {
			result.ApproveURL = link.Href
			break
		}
	}
	if result.ApproveURL == "" {
		return nil, fmt.Errorf("order response contained no approve link")
	}

	return result, nil
}

func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.postJSON(ctx, "/v2/checkout/orders/"+orderID+"/capture", token, struct{}{})
	if err != nil {
		return nil, fmt.Errorf("order capture failed: %w", err)
	}

	var wire orderWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("error parsing capture response: %w", err)
	}

	result := &CaptureResult{OrderID: wire.ID, Status: wire.Status}
	if len(wire.PurchaseUnits) > 0 {
		unit := wire.PurchaseUnits[0]
		result.CustomID = unit.CustomID
		if len(unit.Payments.Captures) > 0 {
			capture := unit.Payments.Captures[0]
			result.CaptureID = capture.ID
			if result.CustomID == "" {
				result.CustomID = capture.CustomID
			}
		}
	}

	return result, nil
}

func (c *Client) postJSON(ctx context.Context, path, token string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
