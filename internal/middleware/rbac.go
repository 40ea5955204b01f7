package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

// RequireRoles rejects callers whose role is not listed. Must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "your role cannot access this resource"))
			c.Abort()
			return
		}
		c.Next()
	}
}
