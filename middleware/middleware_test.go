package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"foodgram-api/apperrors"
	"foodgram-api/helper"
	"foodgram-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func signed(t *testing.T, claims jwt.MapClaims, key []byte) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validToken(t *testing.T, userID uint) string {
	now := time.Now()
	return signed(t, jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(time.Hour).Unix(),
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
	}, secret)
}

func newHelper(t *testing.T) *helper.HTTPHelper {
	t.Helper()
	h, err := helper.NewHTTPHelper(nil)
	require.NoError(t, err)
	return h
}

func whoAmI(c *gin.Context) {
	id, ok := CurrentUserID(c)
	c.JSON(http.StatusOK, gin.H{"user_id": id, "authenticated": ok})
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", AuthMiddleware(secret, newHelper(t)), whoAmI)

	expired := signed(t, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(-time.Minute).Unix()}, secret)
	forged := signed(t, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(time.Hour).Unix()}, []byte("other"))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"wrong key", "Bearer " + forged, http.StatusUnauthorized},
		{"valid", "Bearer " + validToken(t, 7), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.header)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	w := do(r, "Bearer "+validToken(t, 7))
	var body struct {
		UserID        uint `json:"user_id"`
		Authenticated bool `json:"authenticated"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint(7), body.UserID)
	assert.True(t, body.Authenticated)
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", OptionalAuth(secret, newHelper(t)), whoAmI)

	w := do(r, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":0,"authenticated":false}`, w.Body.String())

	w = do(r, "Bearer "+validToken(t, 3))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":3,"authenticated":true}`, w.Body.String())

	w = do(r, "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newHelper(t)
	roles := map[uint]models.UserRole{1: models.RoleAdmin, 2: models.RoleUser}
	lookup := func(_ context.Context, id uint) (models.UserRole, error) {
		role, ok := roles[id]
		if !ok {
			return "", apperrors.NotFound("user not found")
		}
		return role, nil
	}

	r := gin.New()
	r.GET("/", AuthMiddleware(secret, h), RequireRole(h, lookup, models.RoleAdmin), whoAmI)

	assert.Equal(t, http.StatusOK, do(r, "Bearer "+validToken(t, 1)).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+validToken(t, 2)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer "+validToken(t, 3)).Code)
}

func TestRequireRoleIgnoresRoleClaim(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newHelper(t)
	lookup := func(context.Context, uint) (models.UserRole, error) { return models.RoleUser, nil }

	r := gin.New()
	r.GET("/", AuthMiddleware(secret, h), RequireRole(h, lookup, models.RoleAdmin), whoAmI)

	now := time.Now()
	forged := signed(t, jwt.MapClaims{
		"user_id": 2,
		"role":    "admin",
		"exp":     now.Add(time.Hour).Unix(),
	}, secret)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer "+forged).Code)
}

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		calls    int
		wantPass int
	}{
		{"burst allows initial requests", 3, 3, 3},
		{"exceeding burst blocks", 2, 5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewKeyedRateLimiter(0.001, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("client") {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}

	t.Run("keys are independent", func(t *testing.T) {
		rl := NewKeyedRateLimiter(0.001, 1)
		defer rl.Stop()
		assert.True(t, rl.Allow("a"))
		assert.False(t, rl.Allow("a"))
		assert.True(t, rl.Allow("b"))
	})
}

func TestKeyedRateLimiter_EvictsIdleKeys(t *testing.T) {
	rl := NewKeyedRateLimiter(1, 1)
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	rl.Allow("stale")
	now = now.Add(defaultIdleTimeout + time.Second)
	rl.Allow("fresh")

	rl.evictIdle()
	assert.Equal(t, 1, rl.size())
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewKeyedRateLimiter(0.001, 1)
	defer rl.Stop()

	r := gin.New()
	r.GET("/", RateLimit(rl, newHelper(t)), whoAmI)

	assert.Equal(t, http.StatusOK, do(r, "").Code)
	w := do(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rateLimited")
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestLogger(log))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	do(r, "")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "/", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
}
