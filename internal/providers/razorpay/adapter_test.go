package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	a := NewAdapter(Config{KeySecret: "secret"}, testLogger())

	valid := sign("secret", "order_1", "pay_1")

	assert.True(t, a.VerifySignature("order_1", "pay_1", valid))
	assert.False(t, a.VerifySignature("order_1", "pay_2", valid))
	assert.False(t, a.VerifySignature("order_2", "pay_1", valid))
	assert.False(t, a.VerifySignature("order_1", "pay_1", "deadbeef"))
	assert.False(t, a.VerifySignature("order_1", "pay_1", sign("wrong", "order_1", "pay_1")))
	assert.False(t, a.VerifySignature("", "pay_1", valid))
	assert.False(t, a.VerifySignature("order_1", "", valid))
	assert.False(t, a.VerifySignature("order_1", "pay_1", ""))
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		var req orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(200000), req.Amount)
		assert.Equal(t, "INR", req.Currency)
		assert.NotEmpty(t, req.Receipt)

		json.NewEncoder(w).Encode(orderResponse{
			ID:       "order_test_1",
			Amount:   req.Amount,
			Currency: req.Currency,
			Status:   "created",
		})
	}))
	defer srv.Close()

	a := NewAdapter(Config{
		BaseURL:   srv.URL,
		KeyID:     "key_id",
		KeySecret: "key_secret",
		Timeout:   5 * time.Second,
	}, testLogger())

	orderID, err := a.CreateOrder(context.Background(), 200000)
	require.NoError(t, err)
	assert.Equal(t, "order_test_1", orderID)
}

func TestCreateOrderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR"}}`))
	}))
	defer srv.Close()

	a := NewAdapter(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, testLogger())

	_, err := a.CreateOrder(context.Background(), 200000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=401")
}
