package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	errCronNotConfigured = "Cron not configured: set CRON_SECRET in environment and in GitHub Actions secrets"
	errCronUnauthorized  = "Invalid or missing X-Cron-Secret"
)

// CronSecret guards the external-trigger endpoint with a shared secret
// carried in the X-Cron-Secret header. An empty configured secret means
// the endpoint is not set up yet and answers 503 rather than letting
// every caller through.
func CronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": errCronNotConfigured})
			return
		}

		got := c.GetHeader("X-Cron-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": errCronUnauthorized})
			return
		}
		c.Next()
	}
}
