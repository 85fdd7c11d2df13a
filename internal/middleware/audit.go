package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/deposit-api/internal/models"
)

// Audit attaches the client address and user agent to the request context so
// audit records written further down carry them.
func Audit() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := models.AuditOrigin{
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		c.Request = c.Request.WithContext(models.WithAuditOrigin(c.Request.Context(), origin))
		c.Next()
	}
}
