package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"uiforge/uiforge/config"
	httputils "uiforge/uiforge/utils/http"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserIDKey contextKey = "user_id"

var ErrUnauthorized = errors.New("unauthorized")

// ParseUserID validates an HS256 token and returns its user_id claim.
// The websocket handshake uses it directly since browsers cannot set headers there.
func ParseUserID(secret, tokenStr string) (int, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrUnauthorized
	}
	userID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, ErrUnauthorized
	}
	return int(userID), nil
}

func AuthMiddleware(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(r.Header.Get("Authorization"), " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				httputils.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			userID, err := ParseUserID(cfg.JWTSecret, parts[1])
			if err != nil {
				httputils.WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID reads the id stored by AuthMiddleware.
func UserID(ctx context.Context) int {
	id, _ := ctx.Value(UserIDKey).(int)
	return id
}
