package ingest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIKeyHeader carries the intake credential on every machine call.
const APIKeyHeader = "X-OTA-API-Key"

// APIKeyAuthMiddleware validates the X-OTA-API-Key header and sets the
// key id on the gin context for downstream handlers.
func APIKeyAuthMiddleware(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(APIKeyHeader)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		key, err := repo.GetByHash(c.Request.Context(), HashKey(apiKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		// Usage tracking only; never blocks the request.
		_ = repo.TouchLastUsed(c.Request.Context(), key.ID)

		c.Set("otaKeyID", key.ID)
		c.Next()
	}
}
