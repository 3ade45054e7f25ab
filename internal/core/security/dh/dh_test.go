package dh

import (
	"bytes"
	"crypto/rand"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultParams_Valid(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	assert.Equal(t, 1024, p.P.BitLen())
	assert.Equal(t, 128, p.SecretLen())
	assert.Equal(t, DefaultPrivateBits, p.L)
}

func TestParams_Validate(t *testing.T) {
	good := DefaultParams()

	tests := []struct {
		name   string
		params Params
	}{
		{"missing prime", Params{G: good.G}},
		{"even prime", Params{P: new(big.Int).Add(good.P, big.NewInt(1)), G: good.G}},
		{"small prime", Params{P: big.NewInt(23), G: big.NewInt(5)}},
		{"generator one", Params{P: good.P, G: big.NewInt(1)}},
		{"private length too long", Params{P: good.P, G: good.G, L: 2048}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.params.Validate(), ErrInvalidParams)
		})
	}
}

func TestAgree_Symmetric(t *testing.T) {
	a, err := GenerateKey(rand.Reader, DefaultParams())
	require.NoError(t, err)
	b, err := GenerateKey(rand.Reader, DefaultParams())
	require.NoError(t, err)

	s1, err := a.Agree(b.Public())
	require.NoError(t, err)
	s2, err := b.Agree(a.Public())
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Len(t, s1, 128)
}

func TestAgree_Deterministic(t *testing.T) {
	a, err := GenerateKey(rand.Reader, DefaultParams())
	require.NoError(t, err)
	b, err := GenerateKey(rand.Reader, DefaultParams())
	require.NoError(t, err)

	s1, err := a.Agree(b.Public())
	require.NoError(t, err)
	s2, err := a.Agree(b.Public())
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}

func TestAgree_RejectsDegenerateKeys(t *testing.T) {
	k, err := GenerateKey(rand.Reader, DefaultParams())
	require.NoError(t, err)
	p := DefaultParams().P

	for _, y := range []*big.Int{big.NewInt(0), big.NewInt(1), new(big.Int).Sub(p, big.NewInt(1)), p} {
		_, err := k.Agree(&PublicKey{Params: DefaultParams(), Y: y})
		assert.ErrorIs(t, err, ErrInvalidPublicKey)
	}
	_, err = k.Agree(nil)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestGenerateKey_PrivateInRange(t *testing.T) {
	k, err := GenerateKey(rand.Reader, DefaultParams())
	require.NoError(t, err)
	assert.LessOrEqual(t, k.X.BitLen(), DefaultPrivateBits)
	assert.Equal(t, 1, k.X.Cmp(big.NewInt(1)))
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerateKey_EntropyFailure(t *testing.T) {
	_, err := GenerateKey(brokenReader{}, DefaultParams())
	assert.Error(t, err)
}

func TestPublicKey_MarshalRoundTrip(t *testing.T) {
	k, err := GenerateKey(rand.Reader, DefaultParams())
	require.NoError(t, err)

	der, err := k.Public().Marshal()
	require.NoError(t, err)

	parsed, err := ParsePublicKey(der)
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.Y.Cmp(k.Y))
	assert.True(t, parsed.Params.Equal(DefaultParams()))
	assert.Equal(t, DefaultPrivateBits, parsed.Params.L)
}

func TestPublicKey_MarshalWithoutLength(t *testing.T) {
	params := DefaultParams()
	params.L = 0
	k, err := GenerateKey(rand.Reader, params)
	require.NoError(t, err)

	der, err := k.Public().Marshal()
	require.NoError(t, err)
	parsed, err := ParsePublicKey(der)
	require.NoError(t, err)
	assert.Zero(t, parsed.Params.L)
}

func TestParsePublicKey_Malformed(t *testing.T) {
	k, err := GenerateKey(rand.Reader, DefaultParams())
	require.NoError(t, err)
	der, err := k.Public().Marshal()
	require.NoError(t, err)

	tests := map[string][]byte{
		"empty":     nil,
		"truncated": der[:len(der)-5],
		"trailing":  append(bytes.Clone(der), 0x00),
		"garbage":   []byte{0x30, 0x03, 0x02, 0x01, 0x01},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePublicKey(in)
			assert.ErrorIs(t, err, ErrInvalidPublicKey)
		})
	}
}

func TestAgree_MismatchedParamsDiverge(t *testing.T) {
	a, err := GenerateKey(rand.Reader, DefaultParams())
	require.NoError(t, err)

	other := DefaultParams()
	other.G = big.NewInt(2)
	b, err := GenerateKey(rand.Reader, other)
	require.NoError(t, err)

	s1, err := a.Agree(b.Public())
	require.NoError(t, err)
	s2, err := b.Agree(a.Public())
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)
}
