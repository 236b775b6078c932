// Package apierr maps domain errors onto HTTP responses.
package apierr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"donation-platform/internal/domain/billing"
)

type mapping struct {
	target error
	status int
	code   string
}

// Order matters: the first match wins.
var mappings = []mapping{
	{billing.ErrAmountMismatch, http.StatusUnprocessableEntity, "amount_mismatch"},
	{billing.ErrSignatureInvalid, http.StatusUnauthorized, "signature_invalid"},
	{billing.ErrAlreadyTerminal, http.StatusBadRequest, "already_terminal"},
	{billing.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{billing.ErrNotFound, http.StatusNotFound, "not_found"},
	{billing.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{billing.ErrForbidden, http.StatusForbidden, "forbidden"},
	{billing.ErrConflict, http.StatusConflict, "conflict"},
}

// Writer renders errors. Unexpected errors are logged and answered with a
// generic 500; Debug adds the underlying message as "details".
type Writer struct {
	Log   *slog.Logger
	Debug bool
}

func (w Writer) Write(c *gin.Context, err error) {
	status, code := Classify(err)
	if status != http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": code})
		return
	}

	if w.Log != nil {
		w.Log.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
	}
	body := gin.H{"error": "Internal server error", "code": code}
	if w.Debug {
		body["details"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

// BadRequest answers a malformed request body.
func (w Writer) BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_input"})
}

// Classify returns the HTTP status and stable error code for err.
func Classify(err error) (int, string) {
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}
