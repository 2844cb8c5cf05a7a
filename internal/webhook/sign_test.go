package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignPayload_IsDeterministicAcrossKeyOrder(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2}
	b := map[string]any{"a": 2, "b": 1}

	sigA, err := SignPayload(a, "secret")
	require.NoError(t, err)
	sigB, err := SignPayload(b, "secret")
	require.NoError(t, err)

	assert.Equal(t, sigA, sigB, "signature must not depend on map insertion order")
}

func TestVerifySignature_RoundTrips(t *testing.T) {
	payload := map[string]any{"event": "bot.state_change", "botId": "abc123"}
	sig, err := SignPayload(payload, "secret")
	require.NoError(t, err)

	ok, err := VerifySignature(payload, sig, "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySignature(payload, sig, "wrong-secret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignPayload_DifferentSecretsDiffer(t *testing.T) {
	payload := map[string]any{"event": "x"}
	sig1, err := SignPayload(payload, "secret1")
	require.NoError(t, err)
	sig2, err := SignPayload(payload, "secret2")
	require.NoError(t, err)
	assert.NotEqual(t, sig1, sig2)
}
