package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/blogsphere/backend/internal/apperrors"
	"github.com/blogsphere/backend/internal/models"
	"github.com/blogsphere/backend/internal/repository"
	"github.com/blogsphere/backend/internal/session"
	jwtutil "github.com/blogsphere/backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const (
	UserContextKey   contextKey = "user"
	ClaimsContextKey contextKey = "claims"

	// AuthCookie is the HttpOnly cookie holding the session token.
	AuthCookie = "authToken"
)

// UserLookup loads the account a token was issued for.
type UserLookup interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Authenticator verifies session tokens and re-fetches the user on every request.
type Authenticator struct {
	secret  string
	users   UserLookup
	revoker session.Revoker
}

func NewAuthenticator(secret string, users UserLookup, revoker session.Revoker) *Authenticator {
	return &Authenticator{secret: secret, users: users, revoker: revoker}
}

// TokenFromRequest reads the token from the auth cookie, a Bearer header or the token query parameter.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AuthCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

// Authenticate resolves the request's user. Errors are *apperrors.Error.
func (a *Authenticator) Authenticate(r *http.Request) (*models.User, *jwtutil.Claims, error) {
	token := TokenFromRequest(r)
	if token == "" {
		return nil, nil, apperrors.Authentication("Unauthorized: No token provided")
	}

	claims, err := jwtutil.ValidateToken(token, a.secret)
	if err != nil {
		return nil, nil, apperrors.Authentication("Unauthorized: Invalid or Expired Token")
	}

	if a.revoker != nil && claims.ID != "" {
		revoked, err := a.revoker.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			return nil, nil, apperrors.Internal("failed to check token revocation", err)
		}
		if revoked {
			return nil, nil, apperrors.Authentication("Unauthorized: Invalid or Expired Token")
		}
	}

	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil, nil, apperrors.Authentication("Unauthorized: Invalid or Expired Token")
	}
	user, err := a.users.GetUserByID(r.Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperrors.Authentication("Unauthorized: User not found")
	}
	if err != nil {
		return nil, nil, apperrors.Internal("failed to load user", err)
	}
	return user, claims, nil
}

// Middleware rejects unauthenticated requests and stores the user and claims in the context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, claims, err := a.Authenticate(r)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"path":       r.URL.Path,
				"request_id": GetRequestID(r.Context()),
			}).Debug("Rejected unauthenticated request")
			WriteError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		ctx = context.WithValue(ctx, ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request through only when the authenticated user holds one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())
			if user == nil {
				WriteError(w, r, apperrors.Authentication("Unauthorized: User not found"))
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			WriteError(w, r, apperrors.Authorization("User is not authorized to access this route"))
		})
	}
}

// GetUserFromContext returns the authenticated user or nil.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}

// GetClaimsFromContext returns the token claims of the authenticated request or nil.
func GetClaimsFromContext(ctx context.Context) *jwtutil.Claims {
	claims, _ := ctx.Value(ClaimsContextKey).(*jwtutil.Claims)
	return claims
}

// WithUser attaches user to ctx the same way Middleware does.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}
