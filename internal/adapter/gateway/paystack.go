// Package gateway holds the outbound payment-gateway client. The wire shapes
// follow the gateway's documented API; they are a dependency here, not
// something to redesign.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"custodial-wallet/config"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/pkg/apperror"

	"github.com/rs/zerolog"
)

// The gateway expresses amounts in 1/100 of the ledger's minor unit.
const unitScale = 100

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.GatewayClient against a Paystack-compatible API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a gateway client with a bounded request timeout.
func NewClient(cfg config.GatewayConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// NewClientWithHTTP creates a gateway client around a caller-supplied HTTP
// client (used by tests).
func NewClientWithHTTP(cfg config.GatewayConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		secretKey:  cfg.SecretKey,
		httpClient: httpClient,
		log:        log,
	}
}

type initializeRequest struct {
	Email     string            `json:"email"`
	Amount    int64             `json:"amount"`
	Reference string            `json:"reference"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type initializeResponse struct {
	Status bool   `json:"status"`
	Msg    string `json:"message"`
	Data   struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status bool   `json:"status"`
	Msg    string `json:"message"`
	Data   struct {
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"data"`
}

// InitializeTransaction asks the gateway to initialise a payment. The amount
// is converted to the gateway's unit convention on the way out.
func (c *Client) InitializeTransaction(ctx context.Context, req ports.GatewayInitRequest) (*ports.GatewayInitResponse, error) {
	body := initializeRequest{
		Email:     req.Email,
		Amount:    req.Amount * unitScale,
		Reference: req.Reference,
		Metadata:  req.Metadata,
	}

	var resp initializeResponse
	if err := c.post(ctx, "/transaction/initialize", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, apperror.ErrGatewayUnavailable(fmt.Errorf("gateway rejected initialization: %s", resp.Msg))
	}

	return &ports.GatewayInitResponse{
		Reference:        resp.Data.Reference,
		AuthorizationURL: resp.Data.AuthorizationURL,
	}, nil
}

// VerifyTransaction queries the gateway's current view of a transaction and
// scales the amount back to ledger units.
func (c *Client) VerifyTransaction(ctx context.Context, gatewayRef string) (*ports.GatewayVerifyResponse, error) {
	var resp verifyResponse
	if err := c.get(ctx, "/transaction/verify/"+url.PathEscape(gatewayRef), &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, apperror.ErrGatewayUnavailable(fmt.Errorf("gateway rejected verify: %s", resp.Msg))
	}

	return &ports.GatewayVerifyResponse{
		Status:   resp.Data.Status,
		Amount:   resp.Data.Amount / unitScale,
		Currency: resp.Data.Currency,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("marshal gateway request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperror.InternalError(fmt.Errorf("build gateway request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("build gateway request: %w", err))
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", req.URL.Path).Msg("gateway request failed")
		return apperror.ErrGatewayUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperror.ErrGatewayUnavailable(fmt.Errorf("gateway returned status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.ErrGatewayUnavailable(fmt.Errorf("decode gateway response: %w", err))
	}
	return nil
}
