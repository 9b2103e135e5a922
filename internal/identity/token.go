package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhle/teamtrack/internal/apperr"
	"github.com/nhle/teamtrack/internal/model"
)

// claims is the session token payload.
type claims struct {
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. A non-positive ttl defaults to 24h.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for the session.
func (i *TokenIssuer) Issue(s Session) (string, error) {
	now := i.now()
	c := claims{
		Email:       string(s.Email),
		DisplayName: s.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(s.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return token, nil
}

// Parse verifies a token and returns its session. Invalid or expired
// tokens are AuthRequired.
func (i *TokenIssuer) Parse(token string) (Session, error) {
	const op = "parsing session token"

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.AuthRequired, op, err)
	}
	if c.Subject == "" {
		return Session{}, apperr.E(apperr.AuthRequired, op, "token has no subject")
	}

	return Session{
		UserID:      model.UserID(c.Subject),
		Email:       model.Email(c.Email),
		DisplayName: c.DisplayName,
	}, nil
}
