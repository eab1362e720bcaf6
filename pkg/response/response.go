// Package response defines the JSON envelope every endpoint answers with:
// {"data": ...} on success, {"error": "..."} on failure.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type payload struct {
	Data interface{} `json:"data"`
}

type failure struct {
	Error string `json:"error"`
}

// OK sends 200 with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, payload{Data: data})
}

// Created sends 201 with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, payload{Data: data})
}

// BadRequest sends 400 with a message naming the invalid input.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, failure{Error: msg})
}

// Unauthorized sends 401. Callers pass a generic message so the response
// never distinguishes unknown logins from bad passwords or expired tokens.
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, failure{Error: msg})
}

// Forbidden sends 403 with a message naming the denied permission.
func Forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, failure{Error: msg})
}

// NotFound sends 404. Used both for missing rows and rows outside the
// caller's organization, so the two are indistinguishable.
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, failure{Error: msg})
}

// Internal sends 500 with a generic message; the cause goes to the log.
func Internal(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, failure{Error: msg})
}
