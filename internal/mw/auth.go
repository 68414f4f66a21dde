package mw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mechinsight-backend/internal/auth"
)

// TokenHeader is the request header carrying the session token. Clients send
// it as a bare "token" header, not an Authorization bearer scheme; the name
// is load-bearing for existing dashboards.
const TokenHeader = "token"

const usernameKey = "username"

// TokenAuth verifies the session token and stores the authenticated username
// on the request context. Missing, malformed, expired, and mis-signed tokens
// are all rejected with 401 and the same message.
func TokenAuth(codec *auth.TokenCodec) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader(TokenHeader)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token provided"})
			return
		}

		username, err := codec.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(usernameKey, username)
		c.Next()
	}
}

// Username returns the authenticated username set by TokenAuth, or "".
func Username(c *gin.Context) string {
	return c.GetString(usernameKey)
}
