package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AccessClaims are carried by the short-lived access token.
type AccessClaims struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by the long-lived refresh token.
type RefreshClaims struct {
	ID string `json:"_id"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HMAC signed access and refresh tokens.
type Tokens struct {
	accessSecret  []byte
	accessExpiry  time.Duration
	refreshSecret []byte
	refreshExpiry time.Duration
	now           func() time.Time
}

func NewTokens(accessSecret string, accessExpiry time.Duration, refreshSecret string, refreshExpiry time.Duration) *Tokens {
	return &Tokens{
		accessSecret:  []byte(accessSecret),
		accessExpiry:  accessExpiry,
		refreshSecret: []byte(refreshSecret),
		refreshExpiry: refreshExpiry,
		now:           time.Now,
	}
}

func (t *Tokens) AccessExpiry() time.Duration  { return t.accessExpiry }
func (t *Tokens) RefreshExpiry() time.Duration { return t.refreshExpiry }

func (t *Tokens) IssueAccess(id, email, username, fullName string) (string, error) {
	claims := AccessClaims{
		ID:               id,
		Email:            email,
		Username:         username,
		FullName:         fullName,
		RegisteredClaims: t.registered(id, t.accessExpiry),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.accessSecret)
}

func (t *Tokens) IssueRefresh(id string) (string, error) {
	claims := RefreshClaims{
		ID:               id,
		RegisteredClaims: t.registered(id, t.refreshExpiry),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.refreshSecret)
}

func (t *Tokens) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := t.parse(token, claims, t.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *Tokens) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.parse(token, claims, t.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (t *Tokens) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := t.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (t *Tokens) parse(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
