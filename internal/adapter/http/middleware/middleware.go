package middleware

import (
	"io"
	"net/http"
	"strings"
	"time"

	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports"
	"custodial-wallet/internal/observability"
	"custodial-wallet/pkg/apperror"
	"custodial-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderAPIKey carries the API key secret on programmatic requests.
	HeaderAPIKey = "X-Api-Key"

	// Context keys
	CtxPrincipal = "principal"
	CtxRequestID = "request_id"
)

// RequestID attaches a request id to the context and echoes it in the
// response headers, honoring an inbound X-Request-Id if present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(CtxRequestID, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// AccessGate resolves the request principal from either a bearer session
// token or an API key header. The webhook route is mounted outside this
// middleware: gateway deliveries authenticate by signature, not principal.
func AccessGate(accessSvc ports.AccessService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessionToken string
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			sessionToken = strings.TrimPrefix(auth, "Bearer ")
		}
		apiKeyToken := c.GetHeader(HeaderAPIKey)

		principal, err := accessSvc.Authenticate(c.Request.Context(), sessionToken, apiKeyToken)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxPrincipal, principal)
		c.Next()
	}
}

// RequirePermission gates a route on one permission of the resolved
// principal. Session principals carry the full set so this only ever rejects
// API key callers whose stored subset lacks the permission.
func RequirePermission(perm domain.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil {
			response.Error(c, apperror.ErrUnauthenticated())
			c.Abort()
			return
		}
		if !principal.Permissions.Has(perm) {
			response.Error(c, apperror.ErrForbidden("API key lacks the required permission"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSession restricts a route to session-authenticated principals.
// Key management is never reachable with an API key, so a leaked key cannot
// mint or revoke credentials.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		if principal == nil {
			response.Error(c, apperror.ErrUnauthenticated())
			c.Abort()
			return
		}
		if principal.ViaAPIKey() {
			response.Error(c, apperror.ErrForbidden("key management requires a session"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the resolved principal or nil.
func PrincipalFrom(c *gin.Context) *domain.Principal {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return nil
	}
	principal, _ := v.(*domain.Principal)
	return principal
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Metrics records request latency per route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.ObserveHTTP(route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": apperror.CodeInternal,
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// MaxBodySize rejects request bodies larger than limit bytes.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// ReadBody consumes and returns the raw request body, restoring it for later
// binders. Webhook signature verification needs the exact received bytes.
func ReadBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(strings.NewReader(string(body)))
	return body, nil
}
