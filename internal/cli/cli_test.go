package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/sop"
	"github.com/ProtonMail/sop-external/soptest"
)

func TestMain(m *testing.M) {
	soptest.RunIfHelper()
	os.Exit(m.Run())
}

// newRoot returns a command tree bound to the test backend.
func newRoot(t *testing.T, env map[string]string) *cobra.Command {
	t.Helper()
	binary, err := soptest.Binary()
	require.NoError(t, err)
	if env == nil {
		env = map[string]string{}
	}
	env[EnvBackend] = binary
	lookupEnv := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	cmd := &cobra.Command{Use: "sopx"}
	require.NoError(t, AddCommands(cmd, OptLookupEnv(lookupEnv)))
	return cmd
}

func execute(t *testing.T, cmd *cobra.Command, stdin []byte, args ...string) ([]byte, []byte, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetIn(bytes.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--backend-env", soptest.EnvHelper + "=1"}, args...))
	err := cmd.Execute()
	return out.Bytes(), errOut.Bytes(), err
}

func runCommand(t *testing.T, cmd *cobra.Command, args []string) {
	t.Helper()

	out, errOut, err := execute(t, cmd, nil, args...)
	if err != nil {
		t.Fatal(err)
	}

	g := goldie.New(t,
		goldie.WithTestNameForDir(true),
		goldie.WithSubTestNameForDir(true),
	)
	g.Assert(t, "out", out)
	g.Assert(t, "err", errOut)
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "Version",
			args: []string{"version"},
		},
		{
			name: "SOPSpec",
			args: []string{"version", "--sop-spec"},
		},
		{
			name: "BackendVersion",
			args: []string{"version", "--backend"},
		},
		{
			name: "ListProfilesGenerateKey",
			args: []string{"list-profiles", "generate-key"},
		},
		{
			name: "ListProfilesEncrypt",
			args: []string{"list-profiles", "encrypt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runCommand(t, newRoot(t, nil), tt.args)
		})
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"UnknownSubcommand", []string{"frobnicate"}, constants.ExitUnsupportedSubcommand},
		{"UnknownFlag", []string{"version", "--frobnicate"}, constants.ExitUnsupportedOption},
		{"ExclusiveVersionFlags", []string{"version", "--backend", "--extended"}, constants.ExitIncompatibleOptions},
		{"NoProfiles", []string{"list-profiles", "sign"}, constants.ExitUnsupportedProfile},
		{"ListProfilesWithoutSubcommand", []string{"list-profiles"}, constants.ExitMissingArg},
		{"BadLabel", []string{"armor", "--label=picture"}, constants.ExitUnsupportedOption},
		{"SignWithoutKeys", []string{"sign"}, constants.ExitMissingArg},
		{"VerifyWithoutCerts", []string{"verify", "sig"}, constants.ExitMissingArg},
		{"MissingInput", []string{"sign", "/nonexistent/key"}, constants.ExitMissingInput},
		{"IncompleteVerification", []string{"decrypt", "--verify-with=cert"}, constants.ExitIncompleteVerification},
		{"UnsetEnvKey", []string{"sign", "@ENV:KEY"}, constants.ExitMissingInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, newRoot(t, nil), []byte("data"), tt.args...)
			assert.Equal(t, tt.code, sop.ExitCode(err), "%v", err)
		})
	}
}

func TestMissingBackend(t *testing.T) {
	cmd := &cobra.Command{Use: "sopx"}
	require.NoError(t, AddCommands(cmd, OptLookupEnv(func(string) (string, bool) { return "", false })))
	_, _, err := execute(t, cmd, nil, "version")
	assert.Equal(t, constants.ExitMissingArg, sop.ExitCode(err))
}

func TestSignVerify(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "alice.key")
	certPath := filepath.Join(dir, "alice.cert")
	sigPath := filepath.Join(dir, "msg.sig")
	micalgPath := filepath.Join(dir, "micalg")

	key, _, err := execute(t, newRoot(t, nil), nil, "generate-key", "Alice <alice@example.org>")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(keyPath, key, 0o600))

	cert, _, err := execute(t, newRoot(t, nil), key, "extract-cert")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(certPath, cert, 0o600))

	message := []byte("Hello, World!\n")
	sig, _, err := execute(t, newRoot(t, nil), message, "sign", "--as=text", "--micalg-out="+micalgPath, keyPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(sigPath, sig, 0o600))
	micalg, err := os.ReadFile(micalgPath)
	require.NoError(t, err)
	assert.Equal(t, "pgp-sha512", string(micalg))

	out, _, err := execute(t, newRoot(t, nil), message, "verify", sigPath, certPath)
	require.NoError(t, err)
	verifications, err := sop.ParseVerifications(string(out))
	require.NoError(t, err)
	require.Len(t, verifications, 1)
	assert.Equal(t, sop.ModeText, verifications[0].Mode)

	_, _, err = execute(t, newRoot(t, nil), message, "verify", "--not-before=2999-01-01T00:00:00Z", sigPath, certPath)
	assert.Equal(t, constants.ExitNoSignature, sop.ExitCode(err))

	_, _, err = execute(t, newRoot(t, nil), message, "sign", "--micalg-out="+micalgPath, keyPath)
	assert.Equal(t, constants.ExitOutputExists, sop.ExitCode(err))
}

func TestEncryptDecryptThroughEnv(t *testing.T) {
	key, _, err := execute(t, newRoot(t, nil), nil, "generate-key", "Carol")
	require.NoError(t, err)
	cert, _, err := execute(t, newRoot(t, nil), key, "extract-cert")
	require.NoError(t, err)
	env := map[string]string{"KEY": string(key), "CERT": string(cert)}

	ciphertext, _, err := execute(t, newRoot(t, env), []byte("attack at dawn"), "encrypt", "--sign-with=@ENV:KEY", "@ENV:CERT")
	require.NoError(t, err)

	dir := t.TempDir()
	verifyOut := filepath.Join(dir, "verifications")
	plaintext, _, err := execute(t, newRoot(t, env), ciphertext,
		"decrypt", "--verify-out="+verifyOut, "--verify-with=@ENV:CERT", "@ENV:KEY")
	require.NoError(t, err)
	assert.Equal(t, "attack at dawn", string(plaintext))

	lines, err := os.ReadFile(verifyOut)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(lines)), "\n"), 1)
}

func TestArmorRoundTrip(t *testing.T) {
	key, _, err := execute(t, newRoot(t, nil), nil, "generate-key", "--no-armor", "Erin")
	require.NoError(t, err)

	armored, _, err := execute(t, newRoot(t, nil), key, "armor")
	require.NoError(t, err)
	assert.Contains(t, string(armored), constants.PrivateKeyHeader)

	dearmored, _, err := execute(t, newRoot(t, nil), armored, "dearmor")
	require.NoError(t, err)
	assert.Equal(t, key, dearmored)
}

func TestDebugLogging(t *testing.T) {
	_, errOut, err := execute(t, newRoot(t, nil), nil, "--debug", "version")
	require.NoError(t, err)
	assert.Contains(t, string(errOut), "spawning backend")
	assert.Contains(t, string(errOut), "exit_code=0")
}
