package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gallery-backend/internal/shared/telemetry"
)

// CauseKey is the gin context key holding an internal error message to log
// alongside the response.
const CauseKey = "errorCause"

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response. Server errors are logged at error
// level, client errors at info.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if imageID, ok := c.Get("imageId"); ok {
		fields["image_id"] = imageID
	}
	if cause := c.GetString(CauseKey); cause != "" {
		fields["cause"] = cause
	}
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Info("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
