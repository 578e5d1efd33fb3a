package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalSortsKeys(t *testing.T) {
	in := map[string]any{
		"z": 1,
		"a": map[string]any{"y": 2, "b": 3},
		"m": []any{3, 1, 2},
	}
	out, err := Canonical(in)
	require.NoError(t, err)
	require.Equal(t, `{"a":{"b":3,"y":2},"m":[3,1,2],"z":1}`, string(out))
}

func TestCanonicalDeterministic(t *testing.T) {
	in := map[string]any{"b": 2, "a": 1, "c": map[string]any{"z": 1, "y": 2}}
	first, err := Canonical(in)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Canonical(in)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSignVerify(t *testing.T) {
	secret := []byte("topsecret")
	payload := []byte(`{"a":1}`)
	sig := Sign(secret, payload)
	require.True(t, Verify(secret, payload, sig))
	require.False(t, Verify(secret, []byte(`{"a":2}`), sig))
	require.False(t, Verify([]byte("wrong"), payload, sig))
}
