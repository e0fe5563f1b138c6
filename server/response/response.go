package response

import (
	"github.com/gin-gonic/gin"
)

// Response is the envelope every handler writes.
type Response struct {
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Errors  string      `json:"errors,omitempty"`
}

// JSON writes the standard envelope. err may be nil for success responses.
func JSON(c *gin.Context, message string, status int, data interface{}, err error) {
	errMessage := ""
	if err != nil {
		errMessage = err.Error()
	}
	c.JSON(status, Response{
		Message: message,
		Status:  status,
		Data:    data,
		Errors:  errMessage,
	})
}
