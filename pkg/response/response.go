// Package response writes the JSON envelope shared by the short-form API.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Fail sends a failure envelope with status.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Body{Error: msg})
}

// BadRequest sends 400.
func BadRequest(c *gin.Context, msg string) { Fail(c, http.StatusBadRequest, msg) }

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) { Fail(c, http.StatusNotFound, msg) }

// Conflict sends 409.
func Conflict(c *gin.Context, msg string) { Fail(c, http.StatusConflict, msg) }

// Internal sends 500. msg must not carry internal details.
func Internal(c *gin.Context, msg string) { Fail(c, http.StatusInternalServerError, msg) }

// Unauthorized sends 401 and stops the handler chain.
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Body{Error: msg})
}

// Forbidden sends 403 and stops the handler chain.
func Forbidden(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusForbidden, Body{Error: msg})
}

// ServiceUnavailable sends 503 with the failing dependencies as data.
func ServiceUnavailable(c *gin.Context, msg string, data any) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, Body{Data: data, Error: msg})
}
