package auth_test

import (
	"encoding/base64"
	"testing"

	"github.com/jrsteele09/go-tumblr-auth/auth"
	"github.com/stretchr/testify/require"
)

func TestGenerateState(t *testing.T) {
	state, err := auth.GenerateState()
	require.NoError(t, err)
	require.Len(t, state, 43)

	raw, err := base64.RawURLEncoding.DecodeString(state)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}

func TestGenerateState_Distinct(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		state, err := auth.GenerateState()
		require.NoError(t, err)
		_, dup := seen[state]
		require.False(t, dup, "duplicate state after %d draws", i)
		seen[state] = struct{}{}
	}
}
