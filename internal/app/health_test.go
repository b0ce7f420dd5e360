package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(checks map[string]Check) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", Health(checks, time.Second))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	return w
}

func TestHealthOK(t *testing.T) {
	w := serveHealth(map[string]Check{
		"postgres": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthDegraded(t *testing.T) {
	w := serveHealth(map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Down []string `json:"down"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, []string{"redis"}, body.Data.Down)
}
