package handler

import (
	"strings"
	"time"

	"custodial-wallet/internal/adapter/http/dto"
	"custodial-wallet/internal/adapter/http/middleware"
	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/pkg/apperror"
	"custodial-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// APIKeyHandler handles API key management. Every route here sits behind the
// session-only middleware: keys cannot manage keys.
type APIKeyHandler struct {
	keySvc ports.APIKeyService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keySvc ports.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keySvc: keySvc}
}

// Create handles POST /api/v1/keys.
func (h *APIKeyHandler) Create(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidOperation(err.Error()))
		return
	}

	perms, err := domain.ParsePermissionSet(strings.Join(req.Permissions, ","))
	if err != nil {
		response.Error(c, apperror.ErrInvalidOperation(err.Error()))
		return
	}

	created, err := h.keySvc.Create(c.Request.Context(), principal.Identity, req.Name, perms, domain.ExpiryUnit(req.Expiry))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CreatedKeyResponse{
		Key:   toKeyResponse(&created.Key),
		Token: created.Token,
	})
}

// List handles GET /api/v1/keys.
func (h *APIKeyHandler) List(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	keys, err := h.keySvc.List(c.Request.Context(), principal.Identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.KeyResponse, 0, len(keys))
	for i := range keys {
		items = append(items, toKeyResponse(&keys[i]))
	}
	response.OK(c, dto.KeyListResponse{Items: items})
}

// Revoke handles DELETE /api/v1/keys/:id.
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidOperation("invalid key id"))
		return
	}

	if err := h.keySvc.Revoke(c.Request.Context(), principal.Identity, keyID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"revoked": true})
}

// Rollover handles POST /api/v1/keys/:id/rollover.
func (h *APIKeyHandler) Rollover(c *gin.Context) {
	principal := middleware.PrincipalFrom(c)
	if principal == nil {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.ErrInvalidOperation("invalid key id"))
		return
	}

	var req dto.RolloverKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ErrInvalidOperation(err.Error()))
		return
	}

	created, err := h.keySvc.Rollover(c.Request.Context(), principal.Identity, keyID, domain.ExpiryUnit(req.Expiry))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.CreatedKeyResponse{
		Key:   toKeyResponse(&created.Key),
		Token: created.Token,
	})
}

func toKeyResponse(k *domain.APIKey) dto.KeyResponse {
	resp := dto.KeyResponse{
		ID:          k.ID.String(),
		Name:        k.Name,
		MaskedToken: k.MaskedToken,
		Permissions: k.Permissions.Strings(),
		ExpiresAt:   k.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt:   k.CreatedAt.UTC().Format(time.RFC3339),
	}
	if k.RevokedAt != nil {
		v := k.RevokedAt.UTC().Format(time.RFC3339)
		resp.RevokedAt = &v
	}
	if k.RolledOverAt != nil {
		v := k.RolledOverAt.UTC().Format(time.RFC3339)
		resp.RolledOverAt = &v
	}
	if k.RolledFrom != nil {
		v := k.RolledFrom.String()
		resp.RolledFrom = &v
	}
	return resp
}
