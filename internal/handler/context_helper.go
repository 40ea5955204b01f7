package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/complaint-desk-api/internal/middleware"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
	"github.com/noah-isme/complaint-desk-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext writes a 401 and returns false when the request carries no claims.
func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

func complaintID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "complaint id must be a positive number"))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}
