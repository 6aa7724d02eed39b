package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/diploma-portal/internal/models"
	appErrors "github.com/noah-isme/diploma-portal/pkg/errors"
	"github.com/noah-isme/diploma-portal/pkg/response"
)

// RequireRole allows only actors holding one of roles. It must run after RequireSession.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		if !actor.Authenticated() {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[actor.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "this action is reserved for issuing institutions"))
			c.Abort()
			return
		}
		c.Next()
	}
}
