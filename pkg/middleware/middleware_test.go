package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/repository"
	"github.com/blogsphere/backend/internal/session"
	jwtutil "github.com/blogsphere/backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const secret = "test-secret"

type stubUsers map[primitive.ObjectID]*models.User

func (s stubUsers) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

type stubLimiter struct{ allowed int }

func (l *stubLimiter) Allow(context.Context, string) bool {
	if l.allowed <= 0 {
		return false
	}
	l.allowed--
	return true
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func setup(t *testing.T, role string) (*Authenticator, *models.User, string, *session.MemoryRevoker) {
	t.Helper()
	user := &models.User{ID: primitive.NewObjectID(), Name: "Ada", Role: role}
	revoker := session.NewMemoryRevoker()
	auth := NewAuthenticator(secret, stubUsers{user.ID: user}, revoker)
	token, err := jwtutil.GenerateToken(user.ID.Hex(), secret, time.Hour)
	require.NoError(t, err)
	return auth, user, token, revoker
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"name": GetUserFromContext(r.Context()).Name})
	})
}

func TestAuthMiddleware(t *testing.T) {
	auth, _, token, revoker := setup(t, models.RoleReader)
	handler := auth.Middleware(echoUser())

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookie, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Ada", decodeBody(t, rec)["name"])
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Unauthorized: No token provided", body["message"])
	})

	t.Run("unknown user", func(t *testing.T) {
		stranger, err := jwtutil.GenerateToken(primitive.NewObjectID().Hex(), secret, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/?token="+stranger, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		claims, err := jwtutil.ValidateToken(token, secret)
		require.NoError(t, err)
		require.NoError(t, revoker.Revoke(context.Background(), claims.ID, time.Hour))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: AuthCookie, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	auth, _, token, _ := setup(t, models.RoleReader)
	handler := auth.Middleware(RequireRole(models.RoleWriter, models.RoleAdmin)(echoUser()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookie, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "User is not authorized to access this route", decodeBody(t, rec)["message"])

	writerAuth, _, writerToken, _ := setup(t, models.RoleWriter)
	handler = writerAuth.Middleware(RequireRole(models.RoleWriter, models.RoleAdmin)(echoUser()))
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookie, Value: writerToken})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecoveryAnswersGeneric500(t *testing.T) {
	handler := RequestID(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, rec)["message"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(&stubLimiter{allowed: 1}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

// keyedLimiter allows limit requests per key.
type keyedLimiter struct {
	limit int
	seen  map[string]int
}

func (l *keyedLimiter) Allow(_ context.Context, key string) bool {
	l.seen[key]++
	return l.seen[key] <= l.limit
}

func TestRateLimitIgnoresRotatingForwardedFor(t *testing.T) {
	limiter := &keyedLimiter{limit: 2, seen: map[string]int{}}
	handler := RateLimit(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.1:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.9.9.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusNoContent {
			allowed++
		}
	}

	assert.Equal(t, 2, allowed)
	assert.Equal(t, map[string]int{"198.51.100.1": 20}, limiter.seen)
}

func TestClientIP(t *testing.T) {
	trusted, err := NewTrustedProxies([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		forward string
		trusted *TrustedProxies
		want    string
	}{
		{"no proxy", "192.0.2.7:5555", "", nil, "192.0.2.7"},
		{"untrusted peer ignores header", "198.51.100.1:4000", "203.0.113.9", trusted, "198.51.100.1"},
		{"no trusted list ignores header", "10.0.0.5:4000", "203.0.113.9", nil, "10.0.0.5"},
		{"trusted peer uses right-most untrusted hop", "10.0.0.5:4000", "1.2.3.4, 203.0.113.9, 10.1.1.1", trusted, "203.0.113.9"},
		{"trusted peer without header", "192.0.2.1:4000", "", trusted, "192.0.2.1"},
		{"all hops trusted", "10.0.0.5:4000", "10.2.2.2", trusted, "10.2.2.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forward != "" {
				req.Header.Set("X-Forwarded-For", tt.forward)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trusted))
		})
	}
}

func TestNewTrustedProxies(t *testing.T) {
	tp, err := NewTrustedProxies([]string{" ", ""})
	require.NoError(t, err)
	assert.Nil(t, tp)

	_, err = NewTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)

	_, err = NewTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}
