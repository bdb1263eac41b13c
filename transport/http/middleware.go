package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/anchorkit/core"
)

const (
	contextAccountKey = "account"
	contextTokenKey   = "accessToken"
)

// BearerMiddleware extracts the verifier-issued access token from the
// Authorization header and puts the token and its subject account into the
// request context. The token's signature is the verifier's to check; the
// origin only refuses tokens that are unparsable or locally known-expired.
func BearerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		token := core.AccessToken(strings.TrimPrefix(auth, "Bearer "))

		claims, err := token.Claims()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if token.Expired(time.Now()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		}

		c.Set(contextAccountKey, claims.Subject)
		c.Set(contextTokenKey, string(token))

		c.Next()
	}
}
