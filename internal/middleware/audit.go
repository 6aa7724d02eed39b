package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/service"
)

// ClientInfo copies the caller address and user agent onto the request context
// so audit records written by services can include them.
func ClientInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithClientInfo(c.Request.Context(), c.ClientIP(), c.GetHeader("User-Agent"))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
