package api

import (
	"errors"
	"net/http"
	"strings"

	"rpsarena/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// Error codes returned in the JSON envelope
const (
	codeValidation        = "validation_error"
	codeStateConflict     = "state_conflict"
	codeInsufficientFunds = "insufficient_funds"
	codeNotFound          = "not_found"
	codeUnauthorized      = "unauthorized"
	codeInternal          = "internal_error"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// respondError maps a service error onto its status and envelope. Anything that is
// not a known category is logged and reported without its message.
func respondError(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":  c.FullPath(),
			"error": err,
		}).Error("Request failed")
		c.AbortWithStatusJSON(status, ErrorResponse{Error: "internal error", Code: code})
		return
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusPaymentRequired, codeInsufficientFunds
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrStateConflict):
		return http.StatusConflict, codeStateConflict
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// respondBindError reports a malformed or invalid request body
func respondBindError(c *gin.Context, err error) {
	var details []string
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fe := range validationErrs {
			details = append(details, strings.ToLower(fe.Field())+" failed "+fe.Tag())
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid request body",
		Code:    codeValidation,
		Details: details,
	})
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: message, Code: codeUnauthorized})
}
