package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sebuszqo/TaskManager/internal/metrics"
	"github.com/sebuszqo/TaskManager/internal/user"
)

const (
	MsgMissingHeader = "Missing Authorization header"
	MsgInvalidToken  = "Invalid or expired token"
	MsgUserNotFound  = "User not found"
	MsgInternalError = "Internal server error"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type UserResolver interface {
	GetUserBySubject(ctx context.Context, subject string) (*user.User, error)
}

// Middleware authenticates the bearer token and resolves it to a user row
// before handing the request on with the user's id in the context.
func Middleware(verifier TokenVerifier, users UserResolver, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				metrics.AuthAttempts.WithLabelValues("missing_header").Inc()
				writeJSONError(w, http.StatusUnauthorized, MsgMissingHeader)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")

			identity, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				metrics.AuthAttempts.WithLabelValues("invalid_token").Inc()
				logger.Debug("Token rejected", zap.Error(err))
				writeJSONError(w, http.StatusUnauthorized, MsgInvalidToken)
				return
			}

			existingUser, err := users.GetUserBySubject(r.Context(), identity.UID)
			if err != nil {
				if errors.Is(err, user.ErrUserNotFound) {
					metrics.AuthAttempts.WithLabelValues("user_not_found").Inc()
					writeJSONError(w, http.StatusNotFound, MsgUserNotFound)
					return
				}
				metrics.AuthAttempts.WithLabelValues("error").Inc()
				logger.Error("User lookup failed", zap.String("uid", identity.UID), zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, MsgInternalError)
				return
			}

			metrics.AuthAttempts.WithLabelValues("success").Inc()
			ctx := ContextWithUserID(r.Context(), existingUser.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeJSONError writes an error response in JSON format
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}
