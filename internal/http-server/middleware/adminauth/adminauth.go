// Package adminauth guards the /admin routes with bearer tokens issued by the
// SSO service. Only tokens carrying is_admin=true are let through.
package adminauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	resp "github.com/lostmyescape/opsconsole/internal/lib/api/response"
)

type contextKey string

const adminKey contextKey = "admin"

type Admin struct {
	UserID int64
	Email  string
}

// Name is how the admin is recorded in resolved_by.
func (a Admin) Name() string {
	if a.Email != "" {
		return a.Email
	}
	return fmt.Sprintf("admin-%d", a.UserID)
}

type Middleware struct {
	secret []byte
	log    *slog.Logger
}

func New(secret string, log *slog.Logger) *Middleware {
	return &Middleware{
		secret: []byte(secret),
		log:    log.With(slog.String("component", "middleware/adminauth")),
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			resp.Fail(w, r, http.StatusUnauthorized, "missing auth header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		admin, err := m.parseToken(tokenString)
		if err != nil {
			m.log.Info("rejected admin token", slog.String("reason", err.Error()))
			resp.Fail(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), adminKey, admin)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) parseToken(tokenString string) (Admin, error) {
	const op = "middleware.adminauth.parseToken"

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Admin{}, fmt.Errorf("%s: invalid token: %w", op, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Admin{}, fmt.Errorf("%s: invalid claims", op)
	}

	uidFloat, ok := claims["uid"].(float64)
	if !ok {
		return Admin{}, fmt.Errorf("%s: uid missing or invalid", op)
	}

	if isAdmin, _ := claims["is_admin"].(bool); !isAdmin {
		return Admin{}, fmt.Errorf("%s: not an admin", op)
	}

	email, _ := claims["email"].(string)

	return Admin{UserID: int64(uidFloat), Email: email}, nil
}

func GetAdmin(ctx context.Context) (Admin, bool) {
	admin, ok := ctx.Value(adminKey).(Admin)
	return admin, ok
}
