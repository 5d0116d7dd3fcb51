package usecase

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/domain"
)

const adminSubject = "admin"

// AuthService issues short-lived bearer tokens for the admin API in exchange
// for the static admin key.
type AuthService struct {
	JWTSecret string
	AdminKey  string
	TTL       time.Duration
	Now       func() time.Time
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) Login(key string) (string, time.Time, error) {
	if strings.TrimSpace(s.JWTSecret) == "" || strings.TrimSpace(s.AdminKey) == "" {
		return "", time.Time{}, domain.ErrConflict("admin api disabled")
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.AdminKey)) != 1 {
		return "", time.Time{}, domain.ErrBadRequest("invalid admin key")
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	exp := s.now().Add(ttl)
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *AuthService) Verify(token string) error {
	if strings.TrimSpace(s.JWTSecret) == "" {
		return domain.ErrConflict("admin api disabled")
	}
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return err
	}
	if !parsed.Valid || claims.Subject != adminSubject {
		return domain.ErrBadRequest("invalid token")
	}
	return nil
}
