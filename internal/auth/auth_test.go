package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"webdir/internal/config"
)

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("hunter2")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(h), []byte("hunter3")))
}

func TestRequireAuth(t *testing.T) {
	h, err := HashPassword("pw", bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Config{Users: map[string]config.User{"alice": {Bcrypt: h}}}

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
	})
	handler := RequireAuth(cfg, next)

	tests := []struct {
		name       string
		user, pass string
		basic      bool
		want       int
	}{
		{"no credentials", "", "", false, http.StatusUnauthorized},
		{"unknown user", "bob", "pw", true, http.StatusUnauthorized},
		{"wrong password", "alice", "nope", true, http.StatusUnauthorized},
		{"nul in password", "alice", "pw\x00", true, http.StatusUnauthorized},
		{"ok", "alice", "pw", true, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.basic {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "alice", seen)
			}
		})
	}
}

func TestRequireAuthDisabled(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.False(t, HasAuth(config.Config{}))
	rec := httptest.NewRecorder()
	RequireAuth(config.Config{}, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserContext(t *testing.T) {
	assert.Empty(t, UserFromContext(context.Background()))
	assert.Equal(t, "alice", UserFromContext(WithUser(context.Background(), "alice")))
}
