package handler

import (
	"net/http"

	"custodial-wallet/internal/adapter/http/middleware"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/pkg/apperror"
	"custodial-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderWebhookSignature is the gateway's signature header on deliveries.
const HeaderWebhookSignature = "X-Paystack-Signature"

// WebhookHandler receives gateway payment notifications. It sits outside the
// access gate: deliveries authenticate by HMAC signature alone.
type WebhookHandler struct {
	depositSvc ports.DepositService
	log        zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(depositSvc ports.DepositService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{depositSvc: depositSvc, log: log}
}

// Receive handles POST /webhooks/paystack. The raw body bytes are handed to
// the service untouched; signature verification depends on them.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := middleware.ReadBody(c)
	if err != nil {
		response.Error(c, apperror.ErrInvalidOperation("cannot read request body"))
		return
	}

	signature := c.GetHeader(HeaderWebhookSignature)
	if err := h.depositSvc.HandleNotification(c.Request.Context(), body, signature); err != nil {
		h.log.Warn().Err(err).Msg("webhook rejected")
		response.Error(c, err)
		return
	}

	c.Status(http.StatusOK)
}
