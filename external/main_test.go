package external

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

func newTestSOP(t *testing.T, opts ...Option) *SOP {
	t.Helper()
	binary, err := soptest.Binary()
	require.NoError(t, err)
	opts = append([]Option{WithEnv(soptest.Env()), WithTempDir(t.TempDir())}, opts...)
	return New(binary, opts...)
}
