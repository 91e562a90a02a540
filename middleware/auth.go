package middleware

import (
	"context"
	"strings"

	"foodgram-api/apperrors"
	"foodgram-api/helper"
	"foodgram-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

const userIDKey = "user_id"

// Claims carries only the principal id. Roles are looked up per request by RequireRole.
type Claims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthMiddleware rejects requests without a valid bearer token.
func AuthMiddleware(secret []byte, h *helper.HTTPHelper) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			h.SendAbort(c, apperrors.Unauthorized("authorization header required"))
			return
		}

		claims, err := parseBearer(authHeader, secret)
		if err != nil {
			h.SendAbort(c, err)
			return
		}

		setPrincipal(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches the principal when a token is sent and lets anonymous requests through.
// A malformed or expired token is still rejected.
func OptionalAuth(secret []byte, h *helper.HTTPHelper) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		claims, err := parseBearer(authHeader, secret)
		if err != nil {
			h.SendAbort(c, err)
			return
		}

		setPrincipal(c, claims)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware. The role is read from the store so demotions apply
// immediately.
func RequireRole(h *helper.HTTPHelper, lookup func(ctx context.Context, userID uint) (models.UserRole, error), roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			h.SendAbort(c, apperrors.Unauthorized("authentication required"))
			return
		}

		role, err := lookup(c.Request.Context(), userID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				err = apperrors.Unauthorized("user no longer exists")
			}
			h.SendAbort(c, err)
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		h.SendAbort(c, apperrors.Forbidden("insufficient permissions"))
	}
}

// CurrentUserID returns the authenticated principal, if any.
func CurrentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok && id != 0
}

// ViewerID is CurrentUserID with 0 standing for an anonymous viewer.
func ViewerID(c *gin.Context) uint {
	id, _ := CurrentUserID(c)
	return id
}

func parseBearer(authHeader string, secret []byte) (*Claims, error) {
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader || tokenString == "" {
		return nil, apperrors.Unauthorized("bearer token required")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUnauthorized, "invalid token")
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, apperrors.Unauthorized("token is not valid")
	}
	return claims, nil
}

func setPrincipal(c *gin.Context, claims *Claims) {
	c.Set(userIDKey, claims.UserID)
}
