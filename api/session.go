package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
)

type contextKey string

const tokenContextKey contextKey = "auth_token"

// AuthMiddleware stores the bearer token of the request in its context. Validation happens
// when a handler asks for the session, so public routes are unaffected by bad tokens.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			r = r.WithContext(WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// WithToken returns a copy of ctx carrying a session token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// TokenSessions resolves the session from the JWT stored in the context. It implements
// tryon.SessionProvider.
type TokenSessions struct {
	Secret string
}

// CurrentSession returns nil without a token and an error for an invalid or expired one.
func (s TokenSessions) CurrentSession(ctx context.Context) (*tryon.Session, error) {
	token := tokenFromContext(ctx)
	if token == "" {
		return nil, nil
	}

	claims, err := utils.ValidateToken(s.Secret, token)
	if err != nil {
		return nil, err
	}
	return &tryon.Session{UserID: claims.UserID, Email: claims.Email, ExpiresAt: claims.ExpiresAt}, nil
}
