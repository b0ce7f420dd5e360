package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/auth"
	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/response"
)

const (
	// ContextUserID is the key for the viewer pid in gin context.
	ContextUserID = "user_id"
	// InternalTokenHeader carries the shared secret of internal callers.
	InternalTokenHeader = "X-Internal-Token"
)

// OptionalJWT sets the viewer when a valid bearer token is present and lets
// anonymous requests through. An invalid token is treated as anonymous.
func OptionalJWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearer(c.GetHeader("Authorization")); ok {
			if claims, err := jwtService.Validate(token); err == nil {
				c.Set(ContextUserID, claims.UserID)
			}
		}
		c.Next()
	}
}

// Viewer returns the authenticated viewer pid, or "".
func Viewer(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// InternalToken guards endpoints called by trusted services: a missing token
// is 401, a wrong one 403. An empty expected token disables the check.
func InternalToken(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(InternalTokenHeader)
		if expected != "" && got == "" {
			response.Unauthorized(c, "missing internal token")
			return
		}
		if !ValidInternalToken(expected, got) {
			response.Forbidden(c, "invalid internal token")
			return
		}
		c.Next()
	}
}

// ValidInternalToken compares got with expected in constant time.
func ValidInternalToken(expected, got string) bool {
	if expected == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

func bearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
