package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func userHandler(t *testing.T, seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticator_Require(t *testing.T) {
	auth := NewAuthenticator(testSecret)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
		{
			"wrong secret",
			"Bearer " + signToken(t, "other-secret", Claims{UserID: "user-1"}),
			http.StatusUnauthorized, "",
		},
		{
			"expired",
			"Bearer " + signToken(t, testSecret, Claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			}}),
			http.StatusUnauthorized, "",
		},
		{
			"no subject",
			"Bearer " + signToken(t, testSecret, Claims{Role: "tenant"}),
			http.StatusUnauthorized, "",
		},
		{
			"user_id claim",
			"Bearer " + signToken(t, testSecret, Claims{UserID: "user-1"}),
			http.StatusOK, "user-1",
		},
		{
			"sub claim",
			"Bearer " + signToken(t, testSecret, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-2"}}),
			http.StatusOK, "user-2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			auth.Require(userHandler(t, &seen)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantUser, seen)
		})
	}

	t.Run("rejects none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		var seen string

		auth.Require(userHandler(t, &seen)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthenticator_Optional(t *testing.T) {
	auth := NewAuthenticator(testSecret)

	t.Run("anonymous passes through", func(t *testing.T) {
		seen := "unset"
		w := httptest.NewRecorder()

		auth.Optional(userHandler(t, &seen)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "", seen)
	})

	t.Run("valid token attaches user", func(t *testing.T) {
		var seen string
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, Claims{UserID: "tenant-1"}))
		w := httptest.NewRecorder()

		auth.Optional(userHandler(t, &seen)).ServeHTTP(w, req)

		assert.Equal(t, "tenant-1", seen)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		var seen string
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer broken")
		w := httptest.NewRecorder()

		auth.Optional(userHandler(t, &seen)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	auth := NewAuthenticator(testSecret)
	handler := auth.Require(RequireRole(RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	t.Run("admin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, Claims{UserID: "ops-1", Role: RoleAdmin}))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, Claims{UserID: "tenant-1", Role: "tenant"}))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
