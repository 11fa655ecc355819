package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimline/tournament-engine/utils"
)

func TestLoginIssuesOperatorToken(t *testing.T) {
	hash, err := utils.HashPassword("s3cret")
	require.NoError(t, err)
	svc := NewAuthService("operator", hash, "signing-key", time.Hour)

	signed, err := svc.Login(context.Background(), "operator", "s3cret")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("signing-key"), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "operator", claims.Subject)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	hash, err := utils.HashPassword("s3cret")
	require.NoError(t, err)
	svc := NewAuthService("operator", hash, "signing-key", time.Hour)

	_, err = svc.Login(context.Background(), "operator", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "intruder", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
