package profile

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/sop"
)

func TestProfileString(t *testing.T) {
	p, err := New("default", " Use the default profile ", "compat", "legacy")
	require.NoError(t, err)
	assert.Equal(t, "default: Use the default profile (aliases: compat, legacy)", p.String())

	bare, err := New("rfc4880", "")
	require.NoError(t, err)
	assert.Equal(t, "rfc4880", bare.String())

	aliasOnly, err := New("x", "", "y")
	require.NoError(t, err)
	assert.Equal(t, "x: (aliases: y)", aliasOnly.String())
}

func TestProfileParse(t *testing.T) {
	cases := map[string]Profile{
		"default: Use the default profile (aliases: compat, legacy)": {
			Name: "default", Description: "Use the default profile", Aliases: []string{"compat", "legacy"},
		},
		"rfc4880: Follow the packet format of RFC4880": {
			Name: "rfc4880", Description: "Follow the packet format of RFC4880",
		},
		"rfc9580":  {Name: "rfc9580"},
		"rfc9580:": {Name: "rfc9580"},
	}
	for line, expected := range cases {
		t.Run(line, func(t *testing.T) {
			p, err := Parse(line)
			require.NoError(t, err)
			assert.Equal(t, expected, *p)
		})
	}
}

func TestProfileValidation(t *testing.T) {
	for _, name := range []string{"", " ", "a:b", "a b", "a\tb"} {
		_, err := New(name, "")
		assert.Error(t, err, "name %q", name)
	}
	_, err := New("long", strings.Repeat("x", 1000))
	assert.Error(t, err)

	_, err = Parse("bad name: description")
	assert.True(t, errors.Is(err, sop.ErrBadData))
}

func TestParseList(t *testing.T) {
	profiles, err := ParseList("default: EdDSA\n\nrfc4880: RSA\n")
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "rfc4880", profiles[1].Name)
}

func TestLookupPreset(t *testing.T) {
	p, ok := Lookup(constants.SubcommandGenerateKey, "")
	require.True(t, ok)
	assert.Equal(t, "default", p.Name)

	p, ok = Lookup(constants.SubcommandGenerateKey, "compatibility")
	require.True(t, ok)
	assert.Equal(t, "default", p.Name)

	p, ok = Lookup(constants.SubcommandGenerateKey, "rfc4880")
	require.True(t, ok)
	assert.Equal(t, 3072, p.KeyGenerationConfig().RSABits)

	_, ok = Lookup(constants.SubcommandGenerateKey, "nope")
	assert.False(t, ok)
	_, ok = Lookup(constants.SubcommandSign, "")
	assert.False(t, ok)

	for _, sub := range []string{constants.SubcommandGenerateKey, constants.SubcommandEncrypt} {
		for _, preset := range Presets(sub) {
			assert.NoError(t, preset.Validate())
		}
	}
}
