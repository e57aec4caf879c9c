package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/utils"
)

// Context keys set by the auth middlewares.
const (
	ContextUserID    = "user_id"
	ContextCompanyID = "company_id"
	ContextRole      = "role"
)

// AuthMiddleware resolves the bearer token into the acting user and company.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header must be a bearer token"))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *utils.CustomClaims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextCompanyID, claims.CompanyID)
	c.Set(ContextRole, claims.Role)
}

// Identity returns what AuthMiddleware stored; ok is false on routes it
// did not guard.
func Identity(c *gin.Context) (userID, companyID uint, ok bool) {
	userID = c.GetUint(ContextUserID)
	companyID = c.GetUint(ContextCompanyID)
	return userID, companyID, userID != 0 && companyID != 0
}
