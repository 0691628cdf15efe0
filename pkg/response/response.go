// Package response writes the JSON bodies shared by every handler.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Detail    string            `json:"detail"`
	RequestID string            `json:"request_id,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// MessageBody is returned by endpoints that have nothing but a status line to report.
type MessageBody struct {
	Message string `json:"message"`
}

// JSON writes data with status, defaulting to 200.
func JSON(c *gin.Context, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, data)
}

func Message(c *gin.Context, status int, msg string) {
	JSON(c, status, MessageBody{Message: msg})
}

// Error writes an ErrorBody and aborts the handler chain.
func Error(c *gin.Context, status int, detail string, details map[string]string) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, ErrorBody{
		Detail:    detail,
		RequestID: c.GetString("request_id"),
		Errors:    details,
	})
}
