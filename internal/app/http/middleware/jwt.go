package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"donation-platform/internal/domain/access"
)

const identityKey = "identity"

// Authenticate verifies the HS256 bearer token and stores the caller's
// access.Identity on the context. The user id comes from "sub", falling back
// to "user_id" (string or number).
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(secret) == 0 {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing", "code": "unauthorized"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed", "code": "unauthorized"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthorized"})
			return
		}

		id, ok := identityFromClaims(claims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims", "code": "unauthorized"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

func identityFromClaims(claims jwt.MapClaims) (access.Identity, bool) {
	var id access.Identity
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		id.UserID = sub
	} else {
		switch v := claims["user_id"].(type) {
		case string:
			id.UserID = v
		case float64:
			if v > 0 {
				id.UserID = strconv.FormatUint(uint64(v), 10)
			}
		}
	}
	if id.UserID == "" {
		return access.Identity{}, false
	}
	id.Email, _ = claims["email"].(string)
	id.Role, _ = claims["role"].(string)
	return id, true
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c *gin.Context) (access.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return access.Identity{}, false
	}
	id, ok := v.(access.Identity)
	return id, ok
}

// RequireCapability rejects callers the authorizer does not grant cap.
func RequireCapability(authz access.Authorizer, capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated", "code": "unauthorized"})
			return
		}
		if !authz.Requires(id, capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied", "code": "forbidden"})
			return
		}
		c.Next()
	}
}
