package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-ledger/internal/middleware"
	"github.com/noah-isme/campus-ledger/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorOr returns explicit when set, otherwise the authenticated user id.
func actorOr(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}
