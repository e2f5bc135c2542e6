package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/factory-log/internal/models"
)

var operator = models.Actor{ID: "op-7", Role: models.RoleOperator, Department: "Forming"}

func TestNewService(t *testing.T) {
	service := NewService("", 0)
	assert.NotEmpty(t, service.jwtSecret)
	assert.Equal(t, 24*time.Hour, service.tokenExp)

	service = NewService("s3cret", time.Hour)
	assert.Equal(t, []byte("s3cret"), service.jwtSecret)
	assert.Equal(t, time.Hour, service.tokenExp)
}

func TestService_GenerateToken(t *testing.T) {
	service := NewService("s3cret", time.Hour)

	token, err := service.GenerateToken(operator)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = service.GenerateToken(models.Actor{ID: "x", Role: "Janitor"})
	assert.ErrorIs(t, err, ErrInvalidActor)

	_, err = service.GenerateToken(models.Actor{Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrInvalidActor)
}

func TestService_ValidateToken(t *testing.T) {
	service := NewService("s3cret", time.Hour)
	token, err := service.GenerateToken(operator)
	require.NoError(t, err)

	// Test valid token
	actor, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, operator, *actor)

	// Test invalid token
	_, err = service.ValidateToken("invalid-token")
	assert.Equal(t, ErrInvalidToken, err)

	// Test token with Bearer prefix
	_, err = service.ValidateToken("Bearer " + token)
	assert.NoError(t, err)

	// Test token signed with another secret
	_, err = NewService("other", time.Hour).ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ValidateToken_Expired(t *testing.T) {
	service := NewService("s3cret", time.Minute)
	service.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := service.GenerateToken(operator)
	require.NoError(t, err)

	service.now = time.Now
	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrExpiredToken, err)
}

func TestService_ValidateToken_UnknownRole(t *testing.T) {
	claims := jwt.MapClaims{"sub": "x", "role": "Janitor", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = NewService("s3cret", time.Hour).ValidateToken(token)
	assert.Equal(t, ErrInvalidToken, err)
}

func TestService_ExtractTokenFromHeader(t *testing.T) {
	service := NewService("", 0)

	// Test valid header
	extracted, err := service.ExtractTokenFromHeader("Bearer valid-token")
	assert.NoError(t, err)
	assert.Equal(t, "valid-token", extracted)

	for _, header := range []string{"", "InvalidFormat", "Bearer ", "Basic abc"} {
		_, err = service.ExtractTokenFromHeader(header)
		assert.Equal(t, ErrInvalidToken, err, header)
	}
}
