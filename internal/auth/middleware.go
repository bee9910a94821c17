// internal/auth/middleware.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"wallet-service/internal/domain"
	"wallet-service/internal/repository"
	"wallet-service/pkg/response"

	"go.uber.org/zap"
)

type contextKey string

const (
	ContextUserID contextKey = "userID"
	ContextUser   contextKey = "user"
	ContextRole   contextKey = "role"
)

type Middleware struct {
	verifier *Verifier
	users    repository.UserRepository
	logger   *zap.Logger
}

func NewMiddleware(verifier *Verifier, users repository.UserRepository, logger *zap.Logger) *Middleware {
	return &Middleware{verifier: verifier, users: users, logger: logger}
}

// Require rejects requests without a valid bearer token for an active
// user, and stores the user on the request context.
func (m *Middleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		claims, err := m.verifier.ParseAndValidate(token)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		user, err := m.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				m.logger.Error("failed to load user for token",
					zap.String("user_id", claims.UserID),
					zap.Error(err))
			}
			response.Error(w, http.StatusUnauthorized, "user not found")
			return
		}
		if !user.IsActive {
			response.Error(w, http.StatusUnauthorized, "user is inactive")
			return
		}

		ctx := context.WithValue(r.Context(), ContextUserID, user.ID)
		ctx = context.WithValue(ctx, ContextUser, user)
		ctx = context.WithValue(ctx, ContextRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		// browsers cannot set headers on websocket upgrades
		return r.URL.Query().Get("token")
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func GetUserID(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextUserID).(string)
	return val, ok
}

func GetUser(ctx context.Context) (*domain.User, bool) {
	val, ok := ctx.Value(ContextUser).(*domain.User)
	return val, ok
}

// WithUser returns ctx carrying user, as Require does.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	ctx = context.WithValue(ctx, ContextUserID, user.ID)
	return context.WithValue(ctx, ContextUser, user)
}
