package process

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ProtonMail/sop-external/soptest"
)

func TestMain(m *testing.M) {
	soptest.RunIfHelper()
	os.Exit(m.Run())
}

// helper returns a descriptor running the test binary as backend.
func helper(t *testing.T, subcommand string, args ...string) Descriptor {
	t.Helper()
	binary, err := soptest.Binary()
	require.NoError(t, err)
	return Descriptor{
		Executable: binary,
		Subcommand: subcommand,
		Args:       args,
		Env:        soptest.Env(),
	}
}
