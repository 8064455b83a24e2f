// Package armor contains a set of helper methods for armoring and unarmoring
// data.
package armor

import (
	"bufio"
	"bytes"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/pkg/errors"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/sop"
)

const armorStart = "-----BEGIN PGP "

// OpenPGP packet tags that decide the block type of binary data.
const (
	tagSignature = 2
	tagSecretKey = 5
	tagPublicKey = 6
)

// IsArmored reports whether data starts with an armor header line,
// ignoring leading whitespace.
func IsArmored(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte(armorStart))
}

// ArmorWriterWithType returns a io.WriteCloser which, when written to, writes
// armored data to w with the given armorType.
func ArmorWriterWithType(w io.Writer, armorType string) (io.WriteCloser, error) {
	return armor.Encode(w, armorType, nil)
}

// ArmorWithType armors input with the given armorType.
func ArmorWithType(input []byte, armorType string) ([]byte, error) {
	var b bytes.Buffer
	w, err := armor.Encode(&b, armorType, nil)
	if err != nil {
		return nil, errors.Wrap(err, "sop: unable to encode armoring")
	}
	if _, err = w.Write(input); err != nil {
		return nil, errors.Wrap(err, "sop: unable to write armored to buffer")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "sop: unable to close armor buffer")
	}
	return b.Bytes(), nil
}

// Unarmor unarmors an armored input. Malformed armor is reported as
// BadData.
func Unarmor(input []byte) ([]byte, error) {
	block, err := armor.Decode(bytes.NewReader(input))
	if err != nil {
		return nil, sop.WrapError(sop.KindBadData, err, "unable to unarmor")
	}
	data, err := io.ReadAll(block.Body)
	if err != nil {
		return nil, sop.WrapError(sop.KindBadData, err, "unable to read armored body")
	}
	return data, nil
}

// NewReader returns a reader of the binary content of r, unarmoring it
// if it is armored.
func NewReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	for {
		b, err := br.Peek(1)
		if err != nil || !bytes.ContainsAny(b, " \t\r\n") {
			break
		}
		_, _ = br.ReadByte()
	}
	head, _ := br.Peek(len(armorStart))
	if !bytes.Equal(head, []byte(armorStart)) {
		return br, nil
	}
	block, err := armor.Decode(br)
	if err != nil {
		return nil, sop.WrapError(sop.KindBadData, err, "unable to unarmor")
	}
	return block.Body, nil
}

// BlockType guesses the armor block type of binary OpenPGP data from its
// first packet.
func BlockType(data []byte) string {
	if len(data) == 0 || data[0]&0x80 == 0 {
		return constants.PGPMessageHeader
	}
	var tag byte
	if data[0]&0x40 != 0 {
		tag = data[0] & 0x3f
	} else {
		tag = (data[0] & 0x3c) >> 2
	}
	switch tag {
	case tagSignature:
		return constants.PGPSignatureHeader
	case tagSecretKey:
		return constants.PrivateKeyHeader
	case tagPublicKey:
		return constants.PublicKeyHeader
	}
	return constants.PGPMessageHeader
}

// LabelBlockType maps an `armor --label` value to a block type.
func LabelBlockType(label string, data []byte) (string, error) {
	switch label {
	case "", constants.ArmorLabelAuto:
		return BlockType(data), nil
	case constants.ArmorLabelSig:
		return constants.PGPSignatureHeader, nil
	case constants.ArmorLabelKey:
		return constants.PrivateKeyHeader, nil
	case constants.ArmorLabelCert:
		return constants.PublicKeyHeader, nil
	case constants.ArmorLabelMessage:
		return constants.PGPMessageHeader, nil
	}
	return "", sop.NewError(sop.KindUnsupportedOption, "unknown armor label "+label)
}
