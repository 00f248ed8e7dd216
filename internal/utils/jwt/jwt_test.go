package jwt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := CreateToken("alice", "conn-1", "secret")
	require.NoError(t, err)

	username, connectionID, err := ExtractSession(token, "secret")
	require.NoError(t, err)
	require.Equal(t, "alice", username)
	require.Equal(t, "conn-1", connectionID)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := CreateToken("alice", "conn-1", "secret")
	require.NoError(t, err)

	_, _, err = ExtractSession(token, "other-secret")
	require.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	_, _, err := ExtractSession("not-a-token", "secret")
	require.Error(t, err)
}
