package app

import (
	"context"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/pkg/response"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

// Checks returns a ping per store this process depends on.
func (a *App) Checks() map[string]Check {
	checks := map[string]Check{
		"postgres": a.Pool.Ping,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Health answers 200 when every check passes within timeout and 503 with the
// names of the failing dependencies otherwise.
func Health(checks map[string]Check, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		var down []string
		for name, check := range checks {
			if err := check(ctx); err != nil {
				down = append(down, name)
			}
		}
		if len(down) > 0 {
			sort.Strings(down)
			response.ServiceUnavailable(c, "dependencies unavailable", gin.H{"status": "degraded", "down": down})
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	}
}
