package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/kesbangpol-dev/perizinan-api/pkg/errors"
)

// Envelope is the common response contract. Every endpoint answers with a
// single human readable message.
type Envelope struct {
	Message string `json:"message"`
}

// Message sends a response with the given status and message.
func Message(c *gin.Context, status int, message string) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Message: message})
}

// OK responds with HTTP 200 and a message.
func OK(c *gin.Context, message string) {
	Message(c, http.StatusOK, message)
}

// Error sends an error response converting the error to the common structure.
// The HTTP status comes from the typed error; untyped errors collapse into a
// generic 500.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	Message(c, appErr.Status, appErr.Message)
}
