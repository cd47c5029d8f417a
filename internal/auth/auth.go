package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"webdir/internal/config"
	"webdir/internal/logging"
	"webdir/internal/metrics"
)

type ctxKey string

const userKey ctxKey = "webdir.user"

func UserFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userKey).(string)
	return v
}

func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func HasAuth(cfg config.Config) bool {
	return len(cfg.Users) > 0
}

// HashPassword returns the bcrypt hash stored in config.User.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// RequireAuth wraps a handler with optional BasicAuth.
// - If cfg.Users is empty: allow all.
// - Else:
//   - if cfg.AuthOptional is false: require valid basic auth
//   - if cfg.AuthOptional is true: allow anonymous; validate creds if present
//
// /healthz is always let through.
func RequireAuth(cfg config.Config, next http.Handler) http.Handler {
	if !HasAuth(cfg) {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if cfg.AuthOptional && r.Header.Get("Authorization") == "" {
			// anonymous request
			next.ServeHTTP(w, r)
			return
		}
		u, ok := check(cfg, r)
		metrics.RecordAuthAttempt(ok)
		if !ok {
			logging.WithContext(r.Context()).Info("auth rejected",
				zap.String("user", u),
				zap.String("remote_addr", r.RemoteAddr),
			)
			deny(w)
			return
		}
		r = r.WithContext(WithUser(r.Context(), u))
		next.ServeHTTP(w, r)
	})
}

// check returns the presented username (possibly empty) and whether the
// credentials matched.
func check(cfg config.Config, r *http.Request) (string, bool) {
	u, p, ok := parseBasicAuth(r)
	if !ok {
		return u, false
	}
	user, ok := cfg.Users[u]
	if !ok {
		// keep timing close to the known-user path
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(p))
		return u, false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Bcrypt), []byte(p)); err != nil {
		return u, false
	}
	return u, true
}

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("webdir"), bcrypt.DefaultCost)
	return h
})

func deny(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="webdir"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func parseBasicAuth(r *http.Request) (user, pass string, ok bool) {
	u, p, ok := r.BasicAuth()
	if !ok || u == "" {
		return u, "", false
	}
	if strings.Contains(u, "\x00") || strings.Contains(p, "\x00") {
		return u, "", false
	}
	return u, p, true
}
