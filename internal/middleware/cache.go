package middleware

import "github.com/gin-gonic/gin"

// NoStore forbids caching of API responses. Test payloads must never
// land in a shared or browser cache where another user of the machine
// could read the questions.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
