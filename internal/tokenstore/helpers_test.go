package tokenstore

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/reflections/internal/models"
)

func signTestToken(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func testRecord(t *testing.T) *Record {
	t.Helper()

	user := &models.User{
		ID:        "user-123",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Username:  "ada",
		Role:      models.RoleAuthor,
	}
	return NewRecord(user, models.TokenPair{
		AccessToken:  signTestToken(t, "ada@example.com", time.Hour),
		RefreshToken: "refresh-abc",
	})
}
