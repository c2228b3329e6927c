package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/acelabs/aceai/internal/common"
)

// Recovery converts panics into the JSON error envelope instead of gin's
// default plain-text response.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[Recovery] panic: %v", r)
				if !c.Writer.Written() {
					common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
				}
				c.Abort()
			}
		}()
		c.Next()
	}
}
