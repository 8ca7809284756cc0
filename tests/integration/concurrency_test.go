package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentTransfers_ExactOverspendProtection fires concurrent transfers
// whose total exceeds the sender's balance. The serializing transactor models
// row locking, so the outcome is exact: floor(balance/amount) succeed, the
// rest fail with insufficient funds, and no money is created or destroyed.
func TestConcurrentTransfers_ExactOverspendProtection(t *testing.T) {
	app := newTestApp(t)
	_, senderToken := app.sessionFor(t, "spender@example.com")
	_, recipientToken := app.sessionFor(t, "receiver@example.com")

	// Provision both wallets; fund the sender with 500,000.
	resp, _ := app.get(t, "/api/v1/wallet/balance", senderToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := app.get(t, "/api/v1/wallet/balance", recipientToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recipientNumber := body["data"].(map[string]interface{})["wallet_number"].(string)

	app.fundWallet(t, senderToken, 500000)

	// 10 concurrent transfers of 100,000 each: total 1,000,000 against a
	// 500,000 balance. Exactly 5 must go through.
	concurrency := 10
	transferAmount := int64(100000)

	var wg sync.WaitGroup
	var successCount atomic.Int64
	var insufficientCount atomic.Int64
	var otherCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			payload, _ := json.Marshal(map[string]any{
				"recipient_wallet_number": recipientNumber,
				"amount":                  transferAmount,
			})
			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/api/v1/transfers", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+senderToken)

			r, err := http.DefaultClient.Do(req)
			if err != nil {
				otherCount.Add(1)
				return
			}
			defer r.Body.Close()
			_, _ = io.ReadAll(r.Body)

			switch r.StatusCode {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusPaymentRequired:
				insufficientCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}()
	}

	wg.Wait()

	t.Logf("concurrent transfers: %d succeeded, %d insufficient, %d other",
		successCount.Load(), insufficientCount.Load(), otherCount.Load())

	assert.Equal(t, int64(5), successCount.Load(), "exactly floor(500000/100000) transfers must succeed")
	assert.Equal(t, int64(5), insufficientCount.Load())
	assert.Zero(t, otherCount.Load())

	// No money created or destroyed.
	resp, body = app.get(t, "/api/v1/wallet/balance", senderToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	senderBalance := body["data"].(map[string]interface{})["balance"].(float64)
	assert.Equal(t, float64(0), senderBalance)

	resp, body = app.get(t, "/api/v1/wallet/balance", recipientToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recipientBalance := body["data"].(map[string]interface{})["balance"].(float64)
	assert.Equal(t, float64(500000), recipientBalance)
}

// TestConcurrentWebhookDeliveries verifies a redelivery storm for the same
// deposit credits the wallet exactly once.
func TestConcurrentWebhookDeliveries(t *testing.T) {
	app := newTestApp(t)
	_, token := app.sessionFor(t, "storm@example.com")

	resp, _ := app.get(t, "/api/v1/wallet/balance", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := app.post(t, "/api/v1/deposits", token, map[string]any{"amount": 40000})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reference := body["data"].(map[string]interface{})["reference"].(string)
	gwRef, ok := app.gateway.referenceFor(reference)
	require.True(t, ok)

	payload := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"reference":"%s","status":"success"}}`, gwRef))
	signature := signWebhook(payload)

	concurrency := 20
	var wg sync.WaitGroup
	var acked atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req, _ := http.NewRequest(http.MethodPost, app.server.URL+"/webhooks/paystack", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Paystack-Signature", signature)

			r, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer r.Body.Close()
			_, _ = io.ReadAll(r.Body)

			if r.StatusCode == http.StatusOK {
				acked.Add(1)
			}
		}()
	}

	wg.Wait()

	// Every delivery is acknowledged so the gateway stops retrying, but only
	// one credited the wallet.
	assert.Equal(t, int64(concurrency), acked.Load())

	resp, body = app.get(t, "/api/v1/wallet/balance", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(40000), body["data"].(map[string]interface{})["balance"])

	resp, body = app.get(t, "/api/v1/deposits/"+reference, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SUCCESS", body["data"].(map[string]interface{})["status"])
}
