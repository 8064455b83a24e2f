package indirect

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtonMail/sop-external/sop"
)

func newTestResolver(t *testing.T, env map[string]string) *Resolver {
	return &Resolver{
		WorkDir: t.TempDir(),
		LookupEnv: func(name string) (string, bool) {
			v, ok := env[name]
			return v, ok
		},
		Stdin: strings.NewReader("from stdin"),
	}
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}

func TestParse(t *testing.T) {
	cases := map[string]Designator{
		"-":             {Kind: StandardStream, Raw: "-"},
		"key.asc":       {Kind: Literal, Raw: "key.asc"},
		"/tmp/key.asc":  {Kind: Literal, Raw: "/tmp/key.asc"},
		"@ENV:PASSWORD": {Kind: EnvironmentVariable, Raw: "@ENV:PASSWORD", Name: "PASSWORD"},
		"@FD:3":         {Kind: FileDescriptor, Raw: "@FD:3", FD: 3},
	}
	for raw, expected := range cases {
		d, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, expected, d)
		assert.Equal(t, knownScheme(raw), d.Special(), raw)
	}
}

func TestParseUnsupportedPrefix(t *testing.T) {
	for _, raw := range []string{"@FOO:bar", "@", "@ENV:", "@FD:x", "@FD:", "@FD:123456789012345678901"} {
		_, err := Parse(raw)
		assert.True(t, errors.Is(err, sop.ErrUnsupportedSpecialPrefix), raw)
	}
}

func TestInputSources(t *testing.T) {
	r := newTestResolver(t, map[string]string{"PASSWORD": "hunter2", "EMPTY": ""})
	require.NoError(t, os.WriteFile(filepath.Join(r.WorkDir, "key.asc"), []byte("key"), 0o600))

	in, err := r.Input("-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", readAll(t, in))

	in, err = r.Input("@ENV:PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", readAll(t, in))

	data, err := r.ReadAll("key.asc")
	require.NoError(t, err)
	assert.Equal(t, "key", string(data))

	for _, raw := range []string{"@ENV:EMPTY", "@ENV:UNSET", "missing.asc"} {
		_, err = r.Input(raw)
		assert.True(t, errors.Is(err, sop.ErrMissingInput), raw)
	}

	_, err = r.Input(".")
	assert.True(t, errors.Is(err, sop.ErrMissingInput))
}

func TestAmbiguousDesignator(t *testing.T) {
	r := newTestResolver(t, map[string]string{"FOO": "value"})
	require.NoError(t, os.WriteFile(filepath.Join(r.WorkDir, "@ENV:FOO"), []byte("file"), 0o600))

	_, err := r.Input("@ENV:FOO")
	assert.True(t, errors.Is(err, sop.ErrAmbiguousInput))
	assert.Equal(t, sop.KindAmbiguousInput, sop.KindOfError(err))

	_, err = r.Output("@ENV:FOO")
	assert.True(t, errors.Is(err, sop.ErrAmbiguousInput))

	require.NoError(t, os.WriteFile(filepath.Join(r.WorkDir, "@FD:0"), nil, 0o600))
	_, err = r.Input("@FD:0")
	assert.True(t, errors.Is(err, sop.ErrAmbiguousInput))

	require.NoError(t, os.WriteFile(filepath.Join(r.WorkDir, "@FD:existing.file"), nil, 0o600))
	_, err = r.Input("@FD:existing.file")
	assert.True(t, errors.Is(err, sop.ErrAmbiguousInput), "%v", err)
	_, err = r.Output("@FD:existing.file")
	assert.True(t, errors.Is(err, sop.ErrAmbiguousInput), "%v", err)

	_, err = r.Input("@FD:missing.file")
	assert.True(t, errors.Is(err, sop.ErrUnsupportedSpecialPrefix), "%v", err)
}

func TestOutputSinks(t *testing.T) {
	r := newTestResolver(t, nil)
	var stdout strings.Builder
	r.Stdout = &stdout

	out, err := r.Output("-")
	require.NoError(t, err)
	_, err = io.WriteString(out, "hello")
	require.NoError(t, err)
	require.NoError(t, out.Close())
	assert.Equal(t, "hello", stdout.String())

	out, err = r.Output("sig.asc")
	require.NoError(t, err)
	_, err = io.WriteString(out, "sig")
	require.NoError(t, err)
	require.NoError(t, out.Close())

	_, err = r.Output("sig.asc")
	assert.True(t, errors.Is(err, sop.ErrOutputExists))

	_, err = r.Output("@ENV:OUT")
	assert.True(t, errors.Is(err, sop.ErrUnsupportedSpecialPrefix))
}
