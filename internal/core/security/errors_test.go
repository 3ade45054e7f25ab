package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_NoKeyPair(t *testing.T) {
	m := &Material{}

	_, err := m.SessionKey()
	assert.ErrorIs(t, err, ErrNoKeyPair)
	assert.False(t, m.Encrypted())
	assert.False(t, m.ServerAuthEnabled())
}
