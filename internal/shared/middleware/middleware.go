package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"tourhub/internal/shared/config"
	"tourhub/internal/shared/utils/response"
	"tourhub/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// IdempotencyKeyHeader carries the client-supplied command key.
	IdempotencyKeyHeader = "Idempotency-Key"

	// GatewaySignatureHeader carries the shared secret on gateway callbacks.
	GatewaySignatureHeader = "X-Gateway-Secret"

	maxIdempotencyKeyLength = 128
)

// JWTAuthWithConfig verifies access tokens issued by the identity service.
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.JWT.Secret), nil
		})
		if err != nil || !token.Valid {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid token claims", nil, nil)
			c.Abort()
			return
		}
		if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid token type", nil, nil)
			c.Abort()
			return
		}

		userID, _ := claims["user_id"].(string)
		role, _ := claims["role"].(string)
		if _, err := uuid.Parse(userID); err != nil || !users.IsValidRole(role) {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "token is missing a valid subject or role", nil, nil)
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("user_email", claims["email"])
		c.Set("user_role", role)

		c.Next()
	}
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(string(users.RoleAdmin))
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("user_role")
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		role, _ := userRole.(string)
		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// CurrentActor builds the acting user from values set by JWTAuth.
func CurrentActor(c *gin.Context) (users.Actor, bool) {
	rawID, ok := c.Get("user_id")
	if !ok {
		return users.Actor{}, false
	}
	idStr, _ := rawID.(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return users.Actor{}, false
	}
	rawRole, _ := c.Get("user_role")
	role, _ := rawRole.(string)
	return users.Actor{ID: id, Role: users.Role(role)}, true
}

// IdempotencyKey validates the Idempotency-Key header when present and
// stores it under "idempotency_key".
func IdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if len(key) > maxIdempotencyKeyLength {
			response.RespondJSON(c, "error", http.StatusBadRequest, "Idempotency-Key is too long", nil, nil)
			c.Abort()
			return
		}
		if key != "" {
			c.Set("idempotency_key", key)
		}
		c.Next()
	}
}

// GetIdempotencyKey returns the key stored by IdempotencyKey, or "".
func GetIdempotencyKey(c *gin.Context) string {
	return c.GetString("idempotency_key")
}

// GatewaySecret authenticates payment gateway callbacks with a shared secret.
func GatewaySecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(GatewaySignatureHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid gateway credentials", nil, nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
