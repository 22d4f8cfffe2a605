package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newResolver(t *testing.T) *JWTSessionResolver {
	t.Helper()
	r, err := NewJWTSessionResolver(JWTConfig{
		Secret:     testSecret,
		Issuer:     "https://auth.example.com",
		CookieName: "gatehouse_session",
	})
	require.NoError(t, err)
	return r
}

func TestNewJWTSessionResolver_ShortSecret(t *testing.T) {
	_, err := NewJWTSessionResolver(JWTConfig{Secret: "short"})
	assert.Error(t, err)
}

func TestJWTSessionResolver_Anonymous(t *testing.T) {
	r := newResolver(t)
	userID, err := r.Resolve(httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.NoError(t, err)
	assert.Nil(t, userID)
}

func TestJWTSessionResolver_BearerAndCookie(t *testing.T) {
	r := newResolver(t)
	id := uuid.New()
	token, err := r.Issue(id, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	got, err := r.Resolve(req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "gatehouse_session", Value: token})
	got, err = r.Resolve(req)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)
}

func TestJWTSessionResolver_Rejects(t *testing.T) {
	r := newResolver(t)
	id := uuid.New()

	expired, err := r.Issue(id, -time.Minute)
	require.NoError(t, err)

	other, err := NewJWTSessionResolver(JWTConfig{Secret: "ffffffffffffffffffffffffffffffff", Issuer: "https://auth.example.com"})
	require.NoError(t, err)
	wrongKey, err := other.Issue(id, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   id.String(),
		Issuer:    "https://evil.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		Issuer:    "https://auth.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: id.String(),
		Issuer:  "https://auth.example.com",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":      expired,
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"bad subject":  badSubject,
		"no expiry":    noExpiry,
		"garbage":      "a.b.c",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			got, err := r.Resolve(req)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, ErrInvalidSession))
		})
	}
}

func TestJWTSessionResolver_NonBearerHeaderIsAnonymous(t *testing.T) {
	r := newResolver(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	got, err := r.Resolve(req)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestJWTSessionResolver_IssueNilUser(t *testing.T) {
	_, err := newResolver(t).Issue(uuid.Nil, time.Hour)
	assert.Error(t, err)
}
