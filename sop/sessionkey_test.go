package sop

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKeyString(t *testing.T) {
	sk := SessionKey{Algorithm: 9, Key: []byte{0xFC, 0xA4, 0xBE, 0xAF}}
	assert.Equal(t, "9:FCA4BEAF", sk.String())

	parsed, err := ParseSessionKey("9:fca4beaf\n")
	require.NoError(t, err)
	assert.True(t, sk.Equal(*parsed))
}

func TestParseSessionKeyRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "9", ":AB", "9:XYZ", "9:ABC", "300:AB"} {
		_, err := ParseSessionKey(s)
		assert.True(t, errors.Is(err, ErrBadData), s)
	}
}
