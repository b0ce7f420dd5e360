package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORS tags responses for browser clients of the configured origins and
// answers their preflights. allowedOrigins is "*" or a comma-separated list
// (CORS_ALLOWED_ORIGINS); maxAge bounds how long a preflight is cached.
// Requests from other origins pass through untagged, their preflights get 403.
func CORS(allowedOrigins string, maxAge time.Duration) gin.HandlerFunc {
	allowAll, origins := parseOrigins(allowedOrigins)
	methods := strings.Join([]string{http.MethodGet, http.MethodPost, http.MethodOptions}, ", ")
	headers := strings.Join([]string{"Content-Type", "Authorization", InternalTokenHeader}, ", ")
	age := strconv.Itoa(int(maxAge / time.Second))

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}
		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""

		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case origins[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		case preflight:
			c.AbortWithStatus(http.StatusForbidden)
			return
		default:
			c.Next()
			return
		}

		if preflight {
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Max-Age", age)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// parseOrigins reports whether every origin is allowed and the explicit set.
// An empty setting allows every origin.
func parseOrigins(s string) (bool, map[string]bool) {
	m := make(map[string]bool)
	for _, o := range strings.Split(s, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return true, nil
		}
		if o != "" {
			m[o] = true
		}
	}
	return len(m) == 0, m
}
