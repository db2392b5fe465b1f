package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// bearerAuth gates the internal callback routes with the shared secret
// advertised to a remote sandbox at dispatch time.
func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token != s.internalTok {
			c.AbortWithStatusJSON(401, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
