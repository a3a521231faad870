package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID   string
	DeviceID string
}

// Context keys for storing authenticated caller information
type contextKeyUserID struct{}
type contextKeyDeviceID struct{}

var (
	ContextKeyUserID   = contextKeyUserID{}
	ContextKeyDeviceID = contextKeyDeviceID{}
)

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetDeviceID retrieves the reporting device ID from the context
func GetDeviceID(ctx context.Context) string {
	deviceID, ok := ctx.Value(ContextKeyDeviceID).(string)
	if !ok {
		return ""
	}
	return deviceID
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(r.Context(), "missing bearer token",
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
				)
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "invalid bearer token",
					"request_id", GetRequestID(r.Context()),
					"error", err.Error(),
				)
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyDeviceID, claims.DeviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
