package password

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashIsDeterministicPerSalt(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	first := Hash("hunter2", salt)
	second := Hash("hunter2", salt)
	require.Equal(t, first, second)

	other, err := NewSalt()
	require.NoError(t, err)
	require.NotEqual(t, salt, other)
	require.NotEqual(t, first, Hash("hunter2", other))
}

func TestHashDistinguishesPasswords(t *testing.T) {
	salt, err := NewSalt()
	require.NoError(t, err)

	require.NotEqual(t, Hash("alpha", salt), Hash("beta", salt))
	require.NotEqual(t, Hash("alpha", salt), Hash("", salt))
}
