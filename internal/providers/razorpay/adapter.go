// Package razorpay integrates the Razorpay Orders API for wallet recharges.
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
)

// Config holds Razorpay adapter configuration.
type Config struct {
	BaseURL   string        `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	KeyID     string        `envconfig:"RAZORPAY_KEY_ID"`
	KeySecret string        `envconfig:"RAZORPAY_KEY_SECRET"`
	Timeout   time.Duration `envconfig:"RAZORPAY_TIMEOUT" default:"30s"`
}

// Adapter creates payment orders and verifies payment signatures.
type Adapter struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAdapter creates a new Razorpay adapter.
func NewAdapter(cfg Config, logger *slog.Logger) *Adapter {
	return &Adapter{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type orderRequest struct {
	Amount   int64  `json:"amount"` // paise
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateOrder opens a Razorpay order for the given amount and returns its ID.
func (a *Adapter) CreateOrder(ctx context.Context, amountPaise int64) (string, error) {
	receipt := "rcpt_" + ulid.Make().String()

	body, err := json.Marshal(orderRequest{
		Amount:   amountPaise,
		Currency: "INR",
		Receipt:  receipt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(a.config.KeyID, a.config.KeySecret)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, _ := io.ReadAll(httpResp.Body)

	if httpResp.StatusCode >= 400 {
		return "", fmt.Errorf("razorpay api error: status=%d body=%s", httpResp.StatusCode, string(respBody))
	}

	var resp orderResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	a.logger.Info("razorpay order created",
		"order_id", resp.ID,
		"amount_paise", amountPaise,
		"receipt", receipt,
	)

	return resp.ID, nil
}

// VerifySignature checks the checkout callback signature, an HMAC-SHA256 of
// "<order_id>|<payment_id>" keyed with the API secret.
func (a *Adapter) VerifySignature(orderID, paymentID, signature string) bool {
	if orderID == "" || paymentID == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(a.config.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
