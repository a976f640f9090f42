// Package mcpauth provides authentication middleware for the MCP endpoint.
// It wraps the core auth service with RFC 6750 Bearer token error responses.
package mcpauth

import (
	"context"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/auth"
)

// FailureRecorder records failed authentication attempts in the audit trail.
// *mcp.AuditLogger satisfies this interface.
type FailureRecorder interface {
	RecordAuthFailure(actor, reason, clientIP string)
}

// Middleware provides MCP-specific authentication middleware.
// Unlike a plain 401 handler, this returns RFC 6750 WWW-Authenticate
// headers for OAuth 2.0 Bearer token authentication errors.
type Middleware struct {
	authService auth.AuthService
	audit       FailureRecorder
	logger      *zap.Logger
}

// NewMiddleware creates a new MCP auth middleware.
// audit may be nil, in which case failures are only logged.
func NewMiddleware(authService auth.AuthService, audit FailureRecorder, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		audit:       audit,
		logger:      logger,
	}
}

// RequireAuth validates the bearer token and injects claims into the request
// context for downstream handlers. Returns RFC 6750 WWW-Authenticate headers
// on authentication failures.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, token, err := m.authService.ValidateRequest(r)
		if err != nil {
			m.logger.Debug("MCP auth failed: invalid or missing token",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			if m.audit != nil {
				m.audit.RecordAuthFailure("", err.Error(), clientIP(r))
			}
			m.writeWWWAuthenticate(w, http.StatusUnauthorized, "invalid_token", "The access token is invalid or expired")
			return
		}

		// Inject claims and token into context
		ctx := context.WithValue(r.Context(), auth.ClaimsKey, claims)
		ctx = context.WithValue(ctx, auth.TokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeWWWAuthenticate writes an RFC 6750 Bearer token error response.
// See: https://datatracker.ietf.org/doc/html/rfc6750#section-3
func (m *Middleware) writeWWWAuthenticate(w http.ResponseWriter, status int, errorCode, description string) {
	// RFC 6750 Section 3: WWW-Authenticate header format
	headerValue := `Bearer error="` + errorCode + `", error_description="` + description + `"`
	w.Header().Set("WWW-Authenticate", headerValue)
	w.WriteHeader(status)
}

// clientIP extracts the client address from the request, dropping the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
