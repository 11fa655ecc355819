package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/scrimline/tournament-engine/utils"
)

type AuthService interface {
	// Login проверяет учётные данные оператора и выдаёт JWT.
	Login(ctx context.Context, login, password string) (string, error)
}

type authService struct {
	operatorLogin string
	passwordHash  string
	jwtSecret     []byte
	tokenTTL      time.Duration
}

func NewAuthService(operatorLogin, passwordHash, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		operatorLogin: operatorLogin,
		passwordHash:  passwordHash,
		jwtSecret:     []byte(jwtSecret),
		tokenTTL:      tokenTTL,
	}
}

func (s *authService) Login(ctx context.Context, login, password string) (string, error) {
	if login != s.operatorLogin {
		return "", ErrInvalidCredentials
	}
	if !utils.CheckPasswordHash(password, s.passwordHash) {
		return "", ErrInvalidCredentials
	}

	claims := jwt.RegisteredClaims{
		Subject:   login,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
