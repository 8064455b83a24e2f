package process

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/pkg/errors"
	gopsprocess "github.com/shirou/gopsutil/v4/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/sop"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

func TestInvokeIsLazy(t *testing.T) {
	e := NewEngine()
	r := e.Invoke(context.Background(), Descriptor{Executable: "/nonexistent/sop", Subcommand: "version"}, nil)
	require.NotNil(t, r)
	assert.Nil(t, r.ProcessState())
	assert.Equal(t, []string{"version"}, r.Descriptor().Argv())
}

func TestLargeEcho(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	input := randomBytes(t, 10<<20)
	r := NewEngine().Invoke(ctx, helper(t, "x-cat"), bytes.NewReader(input))
	var out bytes.Buffer
	n, err := r.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(len(input)), n)
	assert.True(t, bytes.Equal(input, out.Bytes()))
	assert.True(t, r.ProcessState().Success())
}

func TestExitCodeTakesPrecedence(t *testing.T) {
	input := randomBytes(t, 10<<20)
	r := NewEngine().Invoke(context.Background(), helper(t, "x-exit", "41"), bytes.NewReader(input))
	_, err := r.Bytes()
	require.Error(t, err)
	assert.True(t, errors.Is(err, sop.ErrBadData), "%v", err)

	var transportErr *sop.TransportError
	assert.False(t, errors.As(err, &transportErr))
}

func TestExitWithOpenSource(t *testing.T) {
	for _, tc := range []struct {
		name   string
		cancel bool
	}{
		{"exit", false},
		{"exit and cancel", true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			pr, pw := io.Pipe()
			defer pw.Close()

			r := NewEngine().Invoke(ctx, helper(t, "x-exit", "69"), pr)
			done := make(chan error, 1)
			go func() {
				_, err := r.Bytes()
				done <- err
			}()
			if tc.cancel {
				time.Sleep(200 * time.Millisecond)
				cancel()
			}

			select {
			case err := <-done:
				require.Error(t, err)
				if !tc.cancel {
					assert.True(t, errors.Is(err, sop.ErrUnsupportedSubcommand), "%v", err)
				}
			case <-time.After(30 * time.Second):
				t.Fatal("materialization blocked on an input source after the backend exited")
			}
			require.NotNil(t, r.ProcessState())
			assert.Equal(t, 69, r.ProcessState().ExitCode())
		})
	}
}

func TestExitCodeClassification(t *testing.T) {
	for _, tc := range []struct {
		code string
		kind sop.Kind
		exit int
	}{
		{"3", sop.KindNoSignature, constants.ExitNoSignature},
		{"69", sop.KindUnsupportedSubcommand, constants.ExitUnsupportedSubcommand},
		{"107", sop.KindCertUserIDNoMatch, constants.ExitCertUserIDNoMatch},
		{"42", sop.KindUnclassified, 42},
	} {
		t.Run(tc.code, func(t *testing.T) {
			_, err := NewEngine().Invoke(context.Background(), helper(t, "x-exit", tc.code), nil).Bytes()
			assert.Equal(t, tc.kind, sop.KindOfError(err))
			assert.Equal(t, tc.exit, sop.ExitCode(err))
		})
	}
}

func TestStderrIsKept(t *testing.T) {
	r := NewEngine().Invoke(context.Background(), helper(t, "x-stderr", "67", "key is locked"), nil)
	_, err := r.Bytes()
	var sopErr *sop.Error
	require.True(t, errors.As(err, &sopErr), "%v", err)
	assert.Equal(t, sop.KindKeyIsProtected, sopErr.Kind)
	assert.Equal(t, "key is locked", sopErr.Message)
	assert.Equal(t, "key is locked\n", string(r.Stderr()))
	assert.Equal(t, 67, r.ProcessState().ExitCode())
}

func TestAlreadyMaterialized(t *testing.T) {
	r := NewEngine().Invoke(context.Background(), helper(t, "x-cat"), strings.NewReader("once"))
	out, err := r.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "once", string(out))

	_, err = r.Bytes()
	assert.True(t, errors.Is(err, ErrAlreadyMaterialized))
}

func TestMissingExecutable(t *testing.T) {
	r := NewEngine().Invoke(context.Background(), Descriptor{Executable: "/nonexistent/sop", Subcommand: "version"}, nil)
	_, err := r.Bytes()
	var transportErr *sop.TransportError
	require.True(t, errors.As(err, &transportErr), "%v", err)
	assert.Equal(t, sop.KindUnclassified, sop.KindOfError(err))
	assert.Equal(t, constants.ExitGeneric, sop.ExitCode(err))
	assert.Nil(t, r.ProcessState())
}

func TestSourceFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	src := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(boom))
	_, err := NewEngine().Invoke(context.Background(), helper(t, "x-cat"), src).Bytes()
	var transportErr *sop.TransportError
	require.True(t, errors.As(err, &transportErr), "%v", err)
	assert.Equal(t, "read input", transportErr.Op)
	assert.True(t, errors.Is(err, boom))
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestSinkFailure(t *testing.T) {
	boom := errors.New("sink closed")
	r := NewEngine().Invoke(context.Background(), helper(t, "x-cat"), bytes.NewReader(randomBytes(t, 1<<20)))
	_, err := r.WriteTo(failingWriter{err: boom})
	var transportErr *sop.TransportError
	require.True(t, errors.As(err, &transportErr), "%v", err)
	assert.Equal(t, "write output", transportErr.Op)
	assert.True(t, errors.Is(err, boom))
}

func TestCancelKillsChild(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewEngine().Invoke(ctx, helper(t, "x-sleep"), nil)

	done := make(chan error, 1)
	go func() {
		_, err := r.Bytes()
		done <- err
	}()
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "%v", err)
	case <-time.After(30 * time.Second):
		t.Fatal("backend was not killed")
	}

	state := r.ProcessState()
	require.NotNil(t, state)
	exists, err := gopsprocess.PidExists(int32(state.Pid()))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestEnvironment(t *testing.T) {
	ambient := func() []string { return []string{"A=ambient", "B=ambient"} }
	d := helper(t, "x-env", "A", "B", "C", "IN_0")
	d.Env["B"] = "override"
	d.Env["C"] = "added"
	d.Inputs = []Input{{Name: "IN_0", Data: []byte("armored text")}}

	out, err := NewEngine(WithEnviron(ambient)).Invoke(context.Background(), d, nil).Bytes()
	require.NoError(t, err)
	assert.Equal(t, "A=ambient\nB=override\nC=added\nIN_0=armored text\n", string(out))
}

func TestFileInputsAndSideOutputs(t *testing.T) {
	tmp := t.TempDir()
	binary := []byte{0xc6, 0x00, 0xff}
	d := helper(t, "x-args", "--data=@ENV:BIN_0")
	d.Operands = []string{"@ENV:TXT_1"}
	d.Inputs = []Input{
		{Name: "BIN_0", Data: binary},
		{Name: "TXT_1", Data: []byte("text")},
	}
	d.Outputs = []Output{{Name: "verifications", Flag: "--verify-out"}}

	r := NewEngine(WithTempDir(tmp)).Invoke(context.Background(), d, nil)
	out, err := r.Bytes()
	require.NoError(t, err)

	args := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, args, 3)
	path, ok := strings.CutPrefix(args[0], "--data=")
	require.True(t, ok, args[0])
	assert.Equal(t, "input-BIN_0", filepath.Base(path))
	assert.Equal(t, tmp, filepath.Dir(filepath.Dir(path)))
	assert.True(t, strings.HasPrefix(args[1], "--verify-out="+filepath.Dir(path)), args[1])
	assert.Equal(t, "@ENV:TXT_1", args[2])

	_, err = os.Stat(filepath.Dir(path))
	assert.True(t, os.IsNotExist(err), "temporary directory was not removed")

	_, ok = r.SideOutput("verifications")
	assert.False(t, ok)
}
