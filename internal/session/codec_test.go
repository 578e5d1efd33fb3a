package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	codec, err := NewCodec([]byte("test-secret"))
	require.NoError(t, err)

	state := SessionState{
		SessionID:   "abc123",
		Version:     1,
		Status:      StatusInProgress,
		CurrentMode: ModeCoding,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	signed, err := codec.Sign(state)
	require.NoError(t, err)
	require.NotEmpty(t, signed.Signature)
	require.NoError(t, codec.Verify(signed))
}

func TestVerifyDetectsTampering(t *testing.T) {
	codec, err := NewCodec([]byte("test-secret"))
	require.NoError(t, err)

	signed, err := codec.Sign(SessionState{SessionID: "abc123", Version: 1, Status: StatusInProgress})
	require.NoError(t, err)

	signed.Status = StatusComplete // tamper after signing
	require.Error(t, codec.Verify(signed))
}

func TestNewCodecRejectsEmptySecret(t *testing.T) {
	_, err := NewCodec(nil)
	require.Error(t, err)
}
