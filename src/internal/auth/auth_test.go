// FILE: src/internal/auth/auth_test.go
package auth

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"segbridge/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func basicHeader(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func newAuth(t *testing.T, cfg *config.AuthConfig) *Authenticator {
	t.Helper()
	a, err := New(cfg, newTestLogger())
	require.NoError(t, err)
	require.NotNil(t, a)
	a.failureDelay = 0
	t.Cleanup(a.Close)
	return a
}

func lowCostHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestNew_None(t *testing.T) {
	for _, cfg := range []*config.AuthConfig{nil, {}, {Type: "none"}} {
		a, err := New(cfg, newTestLogger())
		require.NoError(t, err)
		assert.Nil(t, a)

		p, err := a.AuthenticateHTTP("", "127.0.0.1:1")
		require.NoError(t, err)
		assert.Equal(t, "none", p.Method)
		assert.Equal(t, "none", a.Type())
		assert.Equal(t, false, a.GetStats()["enabled"])
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&config.AuthConfig{Type: "basic"}, newTestLogger())
	assert.Error(t, err)

	_, err = New(&config.AuthConfig{Type: "bearer"}, newTestLogger())
	assert.Error(t, err)

	_, err = New(&config.AuthConfig{Type: "digest"}, newTestLogger())
	assert.Error(t, err)

	_, err = New(&config.AuthConfig{
		Type:  "basic",
		Basic: &config.BasicAuthConfig{UsersFile: filepath.Join(t.TempDir(), "missing")},
	}, newTestLogger())
	assert.Error(t, err)
}

func TestBasicAuth(t *testing.T) {
	a := newAuth(t, &config.AuthConfig{
		Type: "basic",
		Basic: &config.BasicAuthConfig{
			Users: []config.BasicAuthUser{{Username: "admin", PasswordHash: lowCostHash(t, "secret")}},
			Realm: "ingest",
		},
	})
	assert.Equal(t, "ingest", a.Realm())

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{"valid", basicHeader("admin", "secret"), false},
		{"wrong password", basicHeader("admin", "nope"), true},
		{"unknown user", basicHeader("root", "secret"), true},
		{"bearer scheme", "Bearer secret", true},
		{"bad base64", "Basic !!!", true},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("admin")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := a.AuthenticateHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "admin", p.Username)
			assert.Equal(t, "basic", p.Method)
		})
	}
}

func TestBasicAuth_UsersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users")
	content := "# comment\n\nalice:" + lowCostHash(t, "pw") + "\nmalformed-line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	a := newAuth(t, &config.AuthConfig{
		Type:  "basic",
		Basic: &config.BasicAuthConfig{UsersFile: path},
	})

	p, err := a.AuthenticateHeader(basicHeader("alice", "pw"))
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, 1, a.GetStats()["basic_users"])
	assert.Equal(t, "segbridge", a.Realm())
}

func signJWT(t *testing.T, key string, claims jwt.RegisteredClaims, method jwt.SigningMethod) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func TestBearerAuth(t *testing.T) {
	const key = "signing-key-for-tests"
	a := newAuth(t, &config.AuthConfig{
		Type: "bearer",
		Bearer: &config.BearerAuthConfig{
			Tokens: []string{"static-token"},
			JWT:    &config.JWTConfig{SigningKey: key, Issuer: "issuer", Audience: "segbridge"},
		},
	})

	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	valid := jwt.RegisteredClaims{Subject: "svc", Issuer: "issuer", Audience: jwt.ClaimStrings{"segbridge"}, ExpiresAt: future}

	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	noExp := valid
	noExp.ExpiresAt = nil

	wrongIssuer := valid
	wrongIssuer.Issuer = "other"

	wrongAudience := valid
	wrongAudience.Audience = jwt.ClaimStrings{"other"}

	tests := []struct {
		name       string
		header     string
		wantErr    bool
		wantMethod string
	}{
		{"static token", "Bearer static-token", false, "bearer"},
		{"unknown static", "Bearer other-token", true, ""},
		{"empty", "Bearer ", true, ""},
		{"basic scheme", basicHeader("a", "b"), true, ""},
		{"jwt HS256", "Bearer " + signJWT(t, key, valid, jwt.SigningMethodHS256), false, "jwt"},
		{"jwt HS512", "Bearer " + signJWT(t, key, valid, jwt.SigningMethodHS512), false, "jwt"},
		{"jwt wrong key", "Bearer " + signJWT(t, "another-key", valid, jwt.SigningMethodHS256), true, ""},
		{"jwt expired", "Bearer " + signJWT(t, key, expired, jwt.SigningMethodHS256), true, ""},
		{"jwt without exp", "Bearer " + signJWT(t, key, noExp, jwt.SigningMethodHS256), true, ""},
		{"jwt wrong issuer", "Bearer " + signJWT(t, key, wrongIssuer, jwt.SigningMethodHS256), true, ""},
		{"jwt wrong audience", "Bearer " + signJWT(t, key, wrongAudience, jwt.SigningMethodHS256), true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := a.AuthenticateHeader(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, p.Method)
			if tt.wantMethod == "jwt" {
				assert.Equal(t, "svc", p.Username)
			}
		})
	}
}

func TestAuthenticateHTTP_RateLimit(t *testing.T) {
	a := newAuth(t, &config.AuthConfig{
		Type:   "bearer",
		Bearer: &config.BearerAuthConfig{Tokens: []string{"tok"}},
	})

	// Burst of 3, then blocked
	for i := 0; i < 3; i++ {
		_, err := a.AuthenticateHTTP("Bearer wrong", "10.0.0.1:5000")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrRateLimited))
	}

	_, err := a.AuthenticateHTTP("Bearer tok", "10.0.0.1:5001")
	assert.ErrorIs(t, err, ErrRateLimited)

	// Still blocked even with valid credentials
	_, err = a.AuthenticateHTTP("Bearer tok", "10.0.0.1:5002")
	assert.ErrorIs(t, err, ErrRateLimited)

	// Other IPs are unaffected
	p, err := a.AuthenticateHTTP("Bearer tok", "10.0.0.2:5000")
	require.NoError(t, err)
	assert.Equal(t, "bearer", p.Method)

	stats := a.GetStats()
	assert.Equal(t, uint64(3), stats["failures"])
	assert.Equal(t, uint64(2), stats["rate_limited"])
	assert.Equal(t, uint64(1), stats["successes"])
	assert.Equal(t, 2, stats["tracked_ips"])
}

func TestCredentials(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("hunter2")))

	_, err = HashPassword("")
	assert.Error(t, err)

	tok, err := GenerateToken(32)
	require.NoError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	_, err = GenerateToken(0)
	assert.Error(t, err)
	_, err = GenerateToken(MaxTokenBytes + 1)
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(&config.AuthConfig{Type: "bearer", Bearer: &config.BearerAuthConfig{Tokens: []string{"x"}}}, newTestLogger())
	require.NoError(t, err)
	a.Close()
	a.Close()

	var nilAuth *Authenticator
	nilAuth.Close()
}
