package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// abortWithError stops the chain with the API's failure envelope. Handlers
// build the same shape in package handlers; middleware cannot import it.
func abortWithError(c *gin.Context, status int, code, msg string) {
	now := time.Now().UTC()
	rid := c.Writer.Header().Get(requestIDHeader)
	if rid == "" {
		rid = c.GetString(requestIDKey)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": msg,
		"errors": []gin.H{{
			"code":      code,
			"message":   msg,
			"timestamp": now,
		}},
		"timestamp": now,
		"requestId": rid,
	})
}
