package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports/mocks"
	"custodial-wallet/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID_Generated(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	id := w.Header().Get("X-Request-Id")
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestRequestID_HonorsInbound(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", "upstream-id-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "upstream-id-42", w.Header().Get("X-Request-Id"))
}

func TestAccessGate_SessionToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accessSvc := mocks.NewMockAccessService(ctrl)
	log := zerolog.Nop()

	userID := uuid.New()
	accessSvc.EXPECT().Authenticate(gomock.Any(), "session-token", "").Return(&domain.Principal{
		Identity:    domain.Identity{ID: userID},
		Permissions: domain.AllPermissions,
	}, nil)

	var captured *domain.Principal
	router := gin.New()
	router.GET("/test", AccessGate(accessSvc, log), func(c *gin.Context) {
		captured = PrincipalFrom(c)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer session-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, userID, captured.Identity.ID)
	assert.False(t, captured.ViaAPIKey())
}

func TestAccessGate_APIKeyHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accessSvc := mocks.NewMockAccessService(ctrl)
	log := zerolog.Nop()

	keyID := uuid.New()
	accessSvc.EXPECT().Authenticate(gomock.Any(), "", "cwlk_secret").Return(&domain.Principal{
		Identity:    domain.Identity{ID: uuid.New()},
		Permissions: domain.PermissionSet(domain.PermissionRead),
		APIKeyID:    &keyID,
	}, nil)

	var captured *domain.Principal
	router := gin.New()
	router.GET("/test", AccessGate(accessSvc, log), func(c *gin.Context) {
		captured = PrincipalFrom(c)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderAPIKey, "cwlk_secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.True(t, captured.ViaAPIKey())
}

func TestAccessGate_NoCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accessSvc := mocks.NewMockAccessService(ctrl)
	log := zerolog.Nop()

	accessSvc.EXPECT().Authenticate(gomock.Any(), "", "").Return(nil, apperror.ErrUnauthenticated())

	router := gin.New()
	router.GET("/test", AccessGate(accessSvc, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperror.CodeUnauthenticated, resp["error_code"])
}

func TestAccessGate_RevokedKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	accessSvc := mocks.NewMockAccessService(ctrl)
	log := zerolog.Nop()

	accessSvc.EXPECT().Authenticate(gomock.Any(), "", "cwlk_dead").
		Return(nil, apperror.ErrForbidden("API key has been revoked"))

	router := gin.New()
	router.GET("/test", AccessGate(accessSvc, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderAPIKey, "cwlk_dead")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "API key has been revoked", resp["message"])
}

func TestRequirePermission_Allows(t *testing.T) {
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		c.Set(CtxPrincipal, &domain.Principal{
			Permissions: domain.PermissionSet(domain.PermissionRead),
		})
	}, RequirePermission(domain.PermissionRead), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission_RejectsMissingPermission(t *testing.T) {
	keyID := uuid.New()
	router := gin.New()
	router.GET("/test", func(c *gin.Context) {
		c.Set(CtxPrincipal, &domain.Principal{
			Permissions: domain.PermissionSet(domain.PermissionRead),
			APIKeyID:    &keyID,
		})
	}, RequirePermission(domain.PermissionTransfer), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperror.CodeForbidden, resp["error_code"])
	assert.Equal(t, "API key lacks the required permission", resp["message"])
}

func TestRequirePermission_NoPrincipal(t *testing.T) {
	router := gin.New()
	router.GET("/test", RequirePermission(domain.PermissionRead), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireSession_RejectsAPIKeyPrincipal(t *testing.T) {
	keyID := uuid.New()
	router := gin.New()
	router.POST("/keys", func(c *gin.Context) {
		c.Set(CtxPrincipal, &domain.Principal{
			Permissions: domain.AllPermissions,
			APIKeyID:    &keyID,
		})
	}, RequireSession(), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/keys", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "key management requires a session", resp["message"])
}

func TestRequireSession_AllowsSessionPrincipal(t *testing.T) {
	router := gin.New()
	router.POST("/keys", func(c *gin.Context) {
		c.Set(CtxPrincipal, &domain.Principal{Permissions: domain.AllPermissions})
	}, RequireSession(), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/keys", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRecovery_PanicRecovered(t *testing.T) {
	log := zerolog.Nop()

	router := gin.New()
	router.Use(Recovery(log))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, apperror.CodeInternal, resp["error_code"])
}

func TestReadBody_RestoresBody(t *testing.T) {
	raw := []byte(`{"event":"charge.success"}`)

	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		first, err := ReadBody(c)
		require.NoError(t, err)
		assert.Equal(t, raw, first)

		// A later binder must see the same bytes.
		second, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		assert.Equal(t, raw, second)

		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
