package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"pdfchat/internal/transport/http/response"
)

const ContextUserIDKey = "user_id"

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthJWT resolves the requesting user from a bearer token. Token issuance
// lives outside this service; the core only needs a trusted user id.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !parsed.Valid {
			response.Error(c, 401, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		payload, ok := parsed.Claims.(*claims)
		if !ok || payload.UserID == "" {
			response.Error(c, 401, response.CodeUnauthorized, "invalid token payload")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, payload.UserID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by AuthJWT.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok && userID != ""
}
