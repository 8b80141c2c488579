package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/pkg/auth"
)

const (
	ContextActorID    = "actor_id"
	ContextActorEmail = "actor_email"
	ContextBusinessID = "business_id"
)

type AuthMiddleware struct {
	validator *auth.Validator
}

func NewAuthMiddleware(validator *auth.Validator) *AuthMiddleware {
	return &AuthMiddleware{validator: validator}
}

// Authenticate verifies the JWT token and sets the actor in context.
// Token issuance belongs to the identity layer; this only validates.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.validator.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextActorID, claims.UserID.String())
		c.Set(ContextActorEmail, claims.Email)
		c.Set(ContextBusinessID, claims.BusinessID.String())
		c.Next()
	}
}

// RequireBusiness rejects requests whose :businessId path segment does not
// match the authenticated actor's business.
func (m *AuthMiddleware) RequireBusiness() gin.HandlerFunc {
	return func(c *gin.Context) {
		businessID, err := uuid.Parse(c.Param("businessId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid business ID"))
			c.Abort()
			return
		}

		if businessID.String() != c.GetString(ContextBusinessID) {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("business mismatch"))
			c.Abort()
			return
		}

		c.Next()
	}
}
