package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/georgemunganga/crafty-backend/internal/modules/user"
)

type ctxKey struct{}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID string
	Role   user.Role
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the caller, if the request was authenticated.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

// UserID returns the authenticated user id or "".
func UserID(ctx context.Context) string {
	p, _ := FromContext(ctx)
	return p.UserID
}

func IsAdmin(ctx context.Context) bool {
	p, ok := FromContext(ctx)
	return ok && p.Role == user.RoleAdmin
}

// Middleware rejects requests without a valid bearer token.
func (i *Issuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			respondError(w, http.StatusUnauthorized, ErrMissingToken)
			return
		}
		claims, err := i.Parse(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err)
			return
		}
		ctx := WithPrincipal(r.Context(), Principal{UserID: claims.Subject, Role: user.Role(claims.Role)})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			respondError(w, http.StatusForbidden, ErrAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
