package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

func TestManagerRoundTrip(t *testing.T) {
	m, err := NewManager("secret")
	require.NoError(t, err)

	token, err := m.NewJWT(42, "client", time.Hour)
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, "client", claims.Role)
}

func TestManagerRejects(t *testing.T) {
	_, err := NewManager("")
	require.Error(t, err)

	m, _ := NewManager("secret")
	other, _ := NewManager("other")

	token, err := other.NewJWT(1, "client", time.Hour)
	require.NoError(t, err)
	_, err = m.Parse(token)
	require.Error(t, err)

	expired, err := m.NewJWT(1, "client", -time.Minute)
	require.NoError(t, err)
	_, err = m.Parse(expired)
	require.Error(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "client"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.Parse(noUser)
	require.Error(t, err)
}
