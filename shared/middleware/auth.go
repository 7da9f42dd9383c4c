package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/rentflow/rentflow/shared/models"
	"github.com/rentflow/rentflow/shared/utils"
)

// AuthMiddleware handles identity-token validation. The identity
// provider supplies a stable subject id; signature verification happens
// upstream, so tokens reaching this service are trusted and parsed for
// their claims only.
type AuthMiddleware struct {
	db *gorm.DB
}

// IdentityClaims represents the claims carried by the provider's token
type IdentityClaims struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	CustomRole string `json:"custom:role"`
	jwt.RegisteredClaims
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{db: db}
}

// RequireAuth middleware validates identity tokens
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization token required"})
			c.Abort()
			return
		}

		claims, err := am.parseToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("user_id", claims.Sub)
		c.Set("email", claims.Email)
		c.Set("role", claims.CustomRole)

		c.Next()
	}
}

// RequireRole middleware validates user role
func (am *AuthMiddleware) RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")

		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found in context"})
			c.Abort()
			return
		}

		if role != requiredRole && role != "admin" {
			c.JSON(http.StatusForbidden, gin.H{
				"error":         "Insufficient permissions",
				"required_role": requiredRole,
				"user_role":     role,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// getCacheKey generates a cache key for the token
func getCacheKey(tokenString string) string {
	hash := sha256.Sum256([]byte(tokenString))
	return "token:" + hex.EncodeToString(hash[:])
}

// extractToken extracts the JWT token from the Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return authHeader
}

// parseToken parses the identity token and resolves the caller's role,
// consulting Redis and the users table for tokens without a role claim.
func (am *AuthMiddleware) parseToken(tokenString string) (*IdentityClaims, error) {
	cacheKey := getCacheKey(tokenString)
	if cachedData, err := utils.CacheGet(cacheKey); err == nil {
		var claims IdentityClaims
		if err := json.Unmarshal([]byte(cachedData), &claims); err == nil {
			return &claims, nil
		}
	}

	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims format")
	}

	identityClaims := &IdentityClaims{
		Sub:        getClaimString(claims, "sub"),
		Email:      getClaimString(claims, "email"),
		CustomRole: getClaimString(claims, "custom:role"),
	}

	if identityClaims.Sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	// Role claim missing: fall back to the users table.
	if identityClaims.CustomRole == "" {
		var user models.User
		if err := am.db.Where("auth_id = ?", identityClaims.Sub).First(&user).Error; err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		identityClaims.CustomRole = string(user.Role)
	}

	if cacheData, err := json.Marshal(identityClaims); err == nil {
		_ = utils.CacheSet(cacheKey, string(cacheData), 1*time.Hour)
	}

	return identityClaims, nil
}

// getClaimString safely extracts a string claim from JWT claims
func getClaimString(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetUserFromContext extracts user information from the Gin context
func GetUserFromContext(c *gin.Context) (userID, email, role string) {
	userID = c.GetString("user_id")
	email = c.GetString("email")
	role = c.GetString("role")
	return
}

// GetUserInfoFromContext extracts user information as a UserInfo struct
func GetUserInfoFromContext(c *gin.Context) (*models.UserInfo, error) {
	userID := c.GetString("user_id")
	if userID == "" {
		return nil, fmt.Errorf("user_id not found in context")
	}
	role := models.UserRole(c.GetString("role"))
	return &models.UserInfo{
		AuthID:  userID,
		Email:   c.GetString("email"),
		Role:    role,
		IsAdmin: role == models.RoleAdmin,
	}, nil
}
