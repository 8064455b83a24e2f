package armor

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/sop"
)

// A new format signature packet header followed by junk.
var signaturePacket = []byte{0xc2, 0x03, 0x04, 0x00, 0x01}

func TestArmorRoundTrip(t *testing.T) {
	armored, err := ArmorWithType(signaturePacket, constants.PGPSignatureHeader)
	require.NoError(t, err)
	assert.True(t, IsArmored(armored))
	assert.Contains(t, string(armored), "-----BEGIN PGP SIGNATURE-----")
	assert.False(t, IsArmored(signaturePacket))

	data, err := Unarmor(armored)
	require.NoError(t, err)
	assert.Equal(t, signaturePacket, data)

	r, err := NewReader(bytes.NewReader(append([]byte("\n  "), armored...)))
	require.NoError(t, err)
	data, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, signaturePacket, data)

	r, err = NewReader(bytes.NewReader(signaturePacket))
	require.NoError(t, err)
	data, err = io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, signaturePacket, data)
}

func TestUnarmorBadData(t *testing.T) {
	_, err := Unarmor([]byte("not armored"))
	assert.True(t, errors.Is(err, sop.ErrBadData))
}

func TestBlockType(t *testing.T) {
	assert.Equal(t, constants.PGPSignatureHeader, BlockType(signaturePacket))
	assert.Equal(t, constants.PublicKeyHeader, BlockType([]byte{0xc6, 0x01}))
	assert.Equal(t, constants.PrivateKeyHeader, BlockType([]byte{0xc5, 0x01}))
	// old format public key
	assert.Equal(t, constants.PublicKeyHeader, BlockType([]byte{0x99, 0x01}))
	assert.Equal(t, constants.PGPMessageHeader, BlockType([]byte{0xc1, 0x01}))
	assert.Equal(t, constants.PGPMessageHeader, BlockType(nil))
}

func TestLabelBlockType(t *testing.T) {
	blockType, err := LabelBlockType(constants.ArmorLabelCert, signaturePacket)
	require.NoError(t, err)
	assert.Equal(t, constants.PublicKeyHeader, blockType)

	blockType, err = LabelBlockType(constants.ArmorLabelAuto, signaturePacket)
	require.NoError(t, err)
	assert.Equal(t, constants.PGPSignatureHeader, blockType)

	_, err = LabelBlockType("picture", nil)
	assert.True(t, errors.Is(err, sop.ErrUnsupportedOption))
}
