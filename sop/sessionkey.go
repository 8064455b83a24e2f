package sop

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var sessionKeyPattern = regexp.MustCompile(`^(\d{1,3}):([0-9A-F]+)$`)

// SessionKey is a symmetric session key together with its algorithm id.
type SessionKey struct {
	Algorithm byte
	Key       []byte
}

// String returns the text form "<algo>:<HEX>".
func (sk SessionKey) String() string {
	return fmt.Sprintf("%d:%X", sk.Algorithm, sk.Key)
}

// Equal compares algorithm and key material.
func (sk SessionKey) Equal(other SessionKey) bool {
	return sk.Algorithm == other.Algorithm && bytes.Equal(sk.Key, other.Key)
}

// ParseSessionKey parses the text form of a session key. Case and line
// breaks are ignored.
func ParseSessionKey(s string) (*SessionKey, error) {
	s = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "\n", "")))
	m := sessionKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, NewError(KindBadData, "session key does not match the expected format")
	}
	algo, err := strconv.ParseUint(m[1], 10, 8)
	if err != nil {
		return nil, WrapError(KindBadData, err, "invalid session key algorithm")
	}
	key, err := hex.DecodeString(m[2])
	if err != nil {
		return nil, WrapError(KindBadData, err, "invalid session key material")
	}
	return &SessionKey{Algorithm: byte(algo), Key: key}, nil
}
