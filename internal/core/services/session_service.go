package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vncsmyrnk/near-poll/internal/core/domain"
	"github.com/vncsmyrnk/near-poll/internal/core/ports"
)

type sessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(secret []byte, ttl time.Duration) ports.SessionService {
	return &sessionService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *sessionService) Issue(accountID string) (string, time.Time, error) {
	if err := domain.ValidateAccountID(accountID); err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expiresAt, nil
}

func (s *sessionService) AccountID(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("invalid session: %w", err)
	}

	if claims.Subject == "" {
		return "", errors.New("invalid session: missing subject")
	}
	if err := domain.ValidateAccountID(claims.Subject); err != nil {
		return "", fmt.Errorf("invalid session: %w", err)
	}
	return claims.Subject, nil
}
