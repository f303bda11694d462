// File: internal/handler/http/response.go
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/vikaspotluri123/mfa-service/internal/domain/errors"
)

// ResponseError is the error body shape for API responses.
type ResponseError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RespondWithError maps a domain error onto the API taxonomy and sends
// it. Unclassified errors become an opaque 500; their detail stays in
// the logs.
func RespondWithError(c *gin.Context, err error, logger *zap.Logger) {
	statusCode, code, message := classify(err)

	logger.Error("API error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", code),
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)

	c.JSON(statusCode, ResponseError{
		Error: message,
		Code:  code,
	})
}

func classify(err error) (int, string, string) {
	switch {
	case domainErrors.IsValidation(err):
		return http.StatusUnprocessableEntity, "validation_error", err.Error()
	case domainErrors.IsBadRequest(err):
		return http.StatusBadRequest, "bad_request", err.Error()
	case domainErrors.IsUnauthorized(err):
		return http.StatusUnauthorized, "unauthorized", err.Error()
	case domainErrors.IsNoPermission(err):
		return http.StatusForbidden, "no_permission", err.Error()
	case domainErrors.IsNotFound(err):
		return http.StatusNotFound, "not_found", err.Error()
	default:
		return http.StatusInternalServerError, "internal_server_error", "internal server error"
	}
}

// RespondWithData sends a successful response with the given payload.
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondWithNoContent sends an empty 204 response.
func RespondWithNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
