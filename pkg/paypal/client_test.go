package paypal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return &Client{
		clientID:     "client-id",
		clientSecret: "client-secret",
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

func tokenHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"test-token"}`))
	}
}

func TestClient_CreateOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t))
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body struct {
			Intent        string `json:"intent"`
			PurchaseUnits []struct {
				Description string `json:"description"`
				CustomID    string `json:"custom_id"`
				Amount      struct {
					CurrencyCode string `json:"currency_code"`
					Value        string `json:"value"`
				} `json:"amount"`
			} `json:"purchase_units"`
			ApplicationContext struct {
				ReturnURL string `json:"return_url"`
				CancelURL string `json:"cancel_url"`
			} `json:"application_context"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "CAPTURE", body.Intent)
		require.Len(t, body.PurchaseUnits, 1)
		assert.Equal(t, "4.99", body.PurchaseUnits[0].Amount.Value)
		assert.Equal(t, "USD", body.PurchaseUnits[0].Amount.CurrencyCode)
		assert.Equal(t, `{"userId":123}`, body.PurchaseUnits[0].CustomID)
		assert.Equal(t, "https://game.example/store/success", body.ApplicationContext.ReturnURL)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"id": "ORDER-1",
			"status": "CREATED",
			"links": [
				{"href": "https://api.test/orders/ORDER-1", "rel": "self"},
				{"href": "https://www.test/checkoutnow?token=ORDER-1", "rel": "approve"}
			]
		}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	order, err := newTestClient(srv.URL).CreateOrder(context.Background(), &OrderRequest{
		Value:        "4.99",
		CurrencyCode: "USD",
		Description:  "test package",
		CustomID:     `{"userId":123}`,
		ReturnURL:    "https://game.example/store/success",
		CancelURL:    "https://game.example/store/cancel",
	})

	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.ID)
	assert.Equal(t, "CREATED", order.Status)
	assert.Equal(t, "https://www.test/checkoutnow?token=ORDER-1", order.ApproveURL)
}

func TestClient_CaptureOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t))
	mux.HandleFunc("/v2/checkout/orders/ORDER-1/capture", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "ORDER-1",
			"status": "COMPLETED",
			"purchase_units": [{
				"payments": {
					"captures": [{"id": "CAP-1", "status": "COMPLETED", "custom_id": "{\"userId\":123}"}]
				}
			}]
		}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	capture, err := newTestClient(srv.URL).CaptureOrder(context.Background(), "ORDER-1")

	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", capture.OrderID)
	assert.Equal(t, OrderCompleted, capture.Status)
	assert.Equal(t, "CAP-1", capture.CaptureID)
	assert.Equal(t, `{"userId":123}`, capture.CustomID)
}

func TestClient_CaptureOrder_ProviderError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", tokenHandler(t))
	mux.HandleFunc("/v2/checkout/orders/ORDER-2/capture", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"name":"ORDER_ALREADY_CAPTURED"}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestClient(srv.URL).CaptureOrder(context.Background(), "ORDER-2")

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "ORDER_ALREADY_CAPTURED")
}

func TestClient_TokenFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateOrder(context.Background(), &OrderRequest{Value: "1.00"})

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
