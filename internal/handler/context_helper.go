package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hostelhq/hostel-api/internal/middleware"
	"github.com/hostelhq/hostel-api/internal/models"
)

// claimsFromContext pulls the authenticated user's claims out of the request
// context. It returns nil on routes that skip the JWT middleware.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	v, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*models.JWTClaims)
	return claims
}
