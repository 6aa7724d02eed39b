package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/logger"
	"github.com/noah-isme/diploma-portal/pkg/response"
)

// ContextActorKey is the gin context key storing the resolved models.ActorContext.
const ContextActorKey = "actor"

// SessionResolver turns a gateway session token into an actor.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (models.ActorContext, error)
}

// RequireSession rejects requests without a valid gateway session.
func RequireSession(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c, cookieName)
		if token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in required"))
			c.Abort()
			return
		}
		actor, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		setActor(c, actor)
		c.Next()
	}
}

// OptionalSession attaches the actor when a valid session is present. Invalid
// or expired sessions continue as anonymous.
func OptionalSession(resolver SessionResolver, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := sessionToken(c, cookieName); token != "" {
			if actor, err := resolver.Resolve(c.Request.Context(), token); err == nil {
				setActor(c, actor)
			}
		}
		c.Next()
	}
}

// ActorFromContext returns the actor for the request, anonymous when none.
func ActorFromContext(c *gin.Context) models.ActorContext {
	if value, exists := c.Get(ContextActorKey); exists {
		if actor, ok := value.(models.ActorContext); ok {
			return actor
		}
	}
	return models.Anonymous()
}

func setActor(c *gin.Context, actor models.ActorContext) {
	c.Set(ContextActorKey, actor)
	c.Set(logger.ActorRoleKey, string(actor.Role))
}

// sessionToken reads a Bearer token first, then the session cookie.
func sessionToken(c *gin.Context, cookieName string) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookieName == "" {
		return ""
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}
