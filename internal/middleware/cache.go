package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// CacheControl marks responses as long-lived and immutable. Uploaded
// FRQ pages are stored under UUID filenames, so a re-captured page gets
// a new URL and the old one never changes.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	header := fmt.Sprintf("public, max-age=%d, immutable", maxAgeSeconds)
	return func(c *gin.Context) {
		c.Header("Cache-Control", header)
		c.Next()
	}
}
