package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/validation"
)

// minSecretLength is the shortest HS256 secret accepted
const minSecretLength = 32

// SessionResolver extracts the authenticated user from a request.
// It returns nil for anonymous requests.
type SessionResolver interface {
	Resolve(r *http.Request) (*uuid.UUID, error)
}

// JWTConfig configures JWTSessionResolver
type JWTConfig struct {
	Secret     string
	Issuer     string
	Audience   string
	CookieName string
	Leeway     time.Duration
}

// JWTSessionResolver verifies HS256 session tokens
type JWTSessionResolver struct {
	secret     []byte
	issuer     string
	audience   string
	cookieName string
	leeway     time.Duration
	now        func() time.Time
}

// NewJWTSessionResolver creates a resolver from cfg
func NewJWTSessionResolver(cfg JWTConfig) (*JWTSessionResolver, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLength)
	}
	return &JWTSessionResolver{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		cookieName: cfg.CookieName,
		leeway:     cfg.Leeway,
		now:        time.Now,
	}, nil
}

// Resolve returns the token subject as a user id. No token means an
// anonymous request (nil, nil); a bad token is anonymous too but the
// returned error wraps ErrInvalidSession so it can be logged.
func (j *JWTSessionResolver) Resolve(r *http.Request) (*uuid.UUID, error) {
	raw := j.extractToken(r)
	if raw == "" {
		return nil, nil
	}

	userID, err := j.Verify(raw)
	if err != nil {
		return nil, err
	}
	return &userID, nil
}

// Verify checks a raw token and returns its subject
func (j *JWTSessionResolver) Verify(raw string) (uuid.UUID, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(j.leeway),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	userID, err := validation.ParseUUIDv4("sub", claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return userID, nil
}

// Issue signs a session token for userID valid for ttl. Used by tests and
// development tooling; production tokens come from the identity provider.
func (j *JWTSessionResolver) Issue(userID uuid.UUID, ttl time.Duration) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("cannot issue a session for the nil user")
	}
	now := j.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if j.audience != "" {
		claims.Audience = jwt.ClaimStrings{j.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTSessionResolver) extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if j.cookieName != "" {
		if cookie, err := r.Cookie(j.cookieName); err == nil {
			return cookie.Value
		}
	}
	return ""
}
