package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/elentis/reconcile/internal/models"
)

type contextKey string

const accountIDKey contextKey = "accountID"

var errMissingAccount = errors.New("token carries no account id")

// AccountID returns the authenticated account set by the auth middleware.
func AccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// WithAccountID is used by tests and internal callers that bypass JWT auth.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// NewAuthMiddleware validates HS256 bearer tokens signed with secret and puts
// the account id claim on the request context.
func NewAuthMiddleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get token from Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
				return
			}

			accountID, err := validateToken(token, key)
			if err != nil {
				logrus.WithField("component", "auth").WithError(err).Debug("rejected bearer token")
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

func validateToken(tokenString string, key []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errMissingAccount
	}

	// user_id is accepted for tokens issued before accounts were split out
	for _, name := range []string{"account_id", "user_id"} {
		if v, ok := claims[name]; ok {
			id := fmt.Sprintf("%v", v)
			if !models.ValidAccountID(id) {
				return "", fmt.Errorf("claim %s: %w", name, models.ErrInvalidReference)
			}
			return id, nil
		}
	}
	return "", errMissingAccount
}
