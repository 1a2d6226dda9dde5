package middleware

import (
	"github.com/gin-gonic/gin"
	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sendgate/sendgate/internal/utils"
)

// CustomContextMiddleware adds the custom context to all requests
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("RequestID") == "" {
			requestID := c.GetHeader("X-Request-Id")
			if requestID == "" {
				requestID, _ = nanoid.New()
			}
			c.Set("RequestID", requestID)
		}

		ctx := utils.WithCustomContextFromGinRequest(c, appSource)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
