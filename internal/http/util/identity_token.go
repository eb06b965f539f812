package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sifan077/MailPulse/internal/app/model"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingSecret = errors.New("token secret is not configured")
)

// IdentityClaims is the payload of a dashboard access token.
type IdentityClaims struct {
	Admin bool `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// IdentityTokens issues and verifies HS256 access tokens for the dashboard API.
type IdentityTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIdentityTokens returns a token codec bound to secret and issuer.
func NewIdentityTokens(secret []byte, issuer string, ttl time.Duration) *IdentityTokens {
	return &IdentityTokens{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a token for the caller.
func (t *IdentityTokens) Issue(caller model.Caller) (string, error) {
	if len(t.secret) == 0 {
		return "", ErrMissingSecret
	}
	if caller.UserID == "" {
		return "", fmt.Errorf("issue token: user id is required")
	}

	now := t.now()
	claims := IdentityClaims{
		Admin: caller.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   caller.UserID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse verifies signature, issuer and expiry and returns the caller.
func (t *IdentityTokens) Parse(raw string) (model.Caller, error) {
	if len(t.secret) == 0 {
		return model.Caller{}, ErrMissingSecret
	}

	var claims IdentityClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return model.Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return model.Caller{}, ErrInvalidToken
	}

	return model.Caller{UserID: claims.Subject, IsAdmin: claims.Admin}, nil
}
