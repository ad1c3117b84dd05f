package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"attendtrack/internal/apperr"
)

const actorKey = "actor"

// Authenticate enforces bearer access tokens and stores the Actor in the context.
func Authenticate(issuer Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := issuer.Parse(tokenStr, TokenAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(actorKey, Actor{UserID: claims.Subject, Role: claims.Role})
		c.Next()
	}
}

// Allow rejects requests whose actor holds none of roles.
func Allow(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := RequireRole(ActorFrom(c), roles...); err != nil {
			e := apperr.As(err)
			c.AbortWithStatusJSON(e.Status(), gin.H{"error": e.Message})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the authenticated actor, or the zero Actor.
func ActorFrom(c *gin.Context) Actor {
	v, ok := c.Get(actorKey)
	if !ok {
		return Actor{}
	}
	actor, _ := v.(Actor)
	return actor
}
