// Package middleware holds the HTTP middleware for the REST interface.
package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"sandgraph/pkg/auth"
	"sandgraph/pkg/common"
	pkgerrors "sandgraph/pkg/errors"
)

// Authenticate validates the bearer token and stores the resulting claims on
// the request context. Requests without a valid token never reach the
// handlers.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				common.RespondAppError(w, pkgerrors.NewUnauthorizedError("missing bearer token"))
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				logger.Warn("token rejected",
					zap.String("path", r.URL.Path),
					zap.Error(err))
				common.RespondAppError(w, err)
				return
			}

			logger.Debug("request authenticated",
				zap.String("user_id", claims.UserID),
				zap.String("path", r.URL.Path),
				zap.String("method", r.Method))

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// extractToken pulls the bearer token from the Authorization header
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
