package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
)

// expiryExtension carries the token's exp claim through the cache
const expiryExtension = "exp"

// Guard authenticates requests with bearer tokens issued by the identity
// provider. Verified tokens are cached so repeated calls skip the signature check.
type Guard struct {
	authenticator auth.Authenticator
	secret        []byte
}

// NewGuard sets up go-guardian with a cached bearer strategy verifying HS256 tokens
func NewGuard(secret string, cacheTTL time.Duration) *Guard {
	g := &Guard{
		authenticator: auth.New(),
		secret:        []byte(secret),
	}
	cache := store.NewFIFO(context.Background(), cacheTTL)
	tokenStrategy := bearer.New(g.verifyToken, cache)
	g.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
	return g
}

// Middleware rejects unauthenticated requests and stores the caller's id in
// the request context
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		user, err := g.authenticator.Authenticate(r)
		if err == nil && expired(user, time.Now()) {
			err = errors.New("token expired")
		}
		if err != nil {
			zap.S().Debugw("unauthorized",
				"url", r.URL.Path,
				"error", err)
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized", "code": "UNAUTHORIZED"}`))
			return
		}
		zap.S().Debugw("user authenticated", "userId", user.ID())
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), user.ID())))
	})
}

// verifyToken checks the signature and expiry, the subject becomes the user id
func (g *Guard) verifyToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	if len(g.secret) == 0 {
		return nil, errors.New("token verification is not configured")
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil || subject == "" {
		return nil, errors.New("token has no subject")
	}
	name := subject
	if claims, ok := parsed.Claims.(jwt.MapClaims); ok {
		if username, ok := claims["username"].(string); ok && username != "" {
			name = username
		}
	}
	var exts map[string][]string
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		exts = map[string][]string{expiryExtension: {strconv.FormatInt(exp.Unix(), 10)}}
	}
	return auth.NewDefaultUser(name, subject, nil, exts), nil
}

// expired reports whether a cached token outlived its exp claim
func expired(user auth.Info, now time.Time) bool {
	v := user.Extensions()[expiryExtension]
	if len(v) == 0 {
		return false
	}
	exp, err := strconv.ParseInt(v[0], 10, 64)
	if err != nil {
		return true
	}
	return !now.Before(time.Unix(exp, 0))
}
