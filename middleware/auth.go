package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kriscao123/freshfood-backend/services"
)

const (
	UserContextKey = "userID"
	RoleContextKey = "userRole"
)

// AuthMiddleware verifies the Bearer session token and puts the caller's
// identity on the context.
func AuthMiddleware(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		claims, err := tokens.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(UserContextKey, userID)
		if role, ok := claims["role"].(string); ok {
			c.Set(RoleContextKey, role)
		}
		c.Next()
	}
}

// GetUserID returns the authenticated caller's id from the gin context.
func GetUserID(c *gin.Context) (primitive.ObjectID, error) {
	if val, ok := c.Get(UserContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return primitive.ObjectIDFromHex(id)
		}
	}
	return primitive.NilObjectID, errors.New("user ID not found in context")
}
