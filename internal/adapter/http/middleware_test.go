package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchroom/orders/internal/adapter/logger"
	"github.com/lunchroom/orders/internal/interfaces"
)

func bearerToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("gateway-secret"))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	var got interfaces.Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromContext(r.Context())
		require.True(t, ok)
		got = caller
	})

	token := bearerToken(t, jwt.MapClaims{
		"sub":   "parent-1",
		"email": "parent@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"realm_access": map[string]interface{}{
			"roles": []string{"parent"},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(logger.NewNop())(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "parent-1", got.ID)
	assert.Equal(t, "parent@example.com", got.Email)
	assert.Equal(t, []string{"parent"}, got.Roles)
	assert.Equal(t, token, got.Token)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	mw := AuthMiddleware(logger.NewNop())(next)

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("not a jwt", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := bearerToken(t, jwt.MapClaims{
			"email": "parent@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		token := bearerToken(t, jwt.MapClaims{
			"sub": "parent-1",
			"exp": time.Now().Add(-time.Minute).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	RecoveryMiddleware(logger.NewNop())(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
