package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/techhatch/techhatch-server/internal/auth"
	"github.com/techhatch/techhatch-server/internal/security"
)

// identityKey is the gin context key holding the authenticated identity.
const identityKey = "auth_identity"

// IdentityFrom returns the authenticated identity attached to the request,
// or nil when the caller is anonymous.
func IdentityFrom(c *gin.Context) *auth.Identity {
	raw, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := raw.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// OptionalAuth attaches the caller's identity when a valid bearer token is
// present and lets the request through either way. Login-family endpoints
// use it for their idempotent short-circuit.
func OptionalAuth(tokens *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			return
		}
		claims, errParse := tokens.Parse(raw)
		if errParse != nil {
			return
		}
		c.Set(identityKey, &auth.Identity{
			Email:  claims.Email,
			Role:   claims.Role,
			UserID: claims.UserID,
		})
	}
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tokens *security.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, errParse := tokens.Parse(raw)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(identityKey, &auth.Identity{
			Email:  claims.Email,
			Role:   claims.Role,
			UserID: claims.UserID,
		})
		c.Next()
	}
}
