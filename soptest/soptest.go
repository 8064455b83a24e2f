// Package soptest implements a stateless OpenPGP backend on top of go-crypto
// for tests. A test binary acts as the backend when it is re-executed with
// SOPTEST_BACKEND=1 and calls RunIfHelper from TestMain.
package soptest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/indirect"
	"github.com/ProtonMail/sop-external/sop"
)

// EnvHelper switches a test binary into backend mode.
const EnvHelper = "SOPTEST_BACKEND"

// Name and Version are reported by `version`.
const (
	Name    = "soptest"
	Version = "1.0.0"
)

// RunIfHelper runs the backend and exits if the process was started as one.
func RunIfHelper() {
	if os.Getenv(EnvHelper) != "1" {
		return
	}
	os.Exit(Main(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// Env returns the environment that turns the test binary into the backend.
func Env() map[string]string {
	return map[string]string{EnvHelper: "1"}
}

// Binary returns the path of the running test binary.
func Binary() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "soptest: cannot locate test binary")
	}
	return exe, nil
}

// exitStatus ends a subcommand with an exit code and no diagnostic.
type exitStatus int

func (e exitStatus) Error() string {
	return "exit status " + strconv.Itoa(int(e))
}

type command func(b *backend, args []string) error

var commands = map[string]command{
	constants.SubcommandVersion:      (*backend).version,
	constants.SubcommandListProfiles: (*backend).listProfiles,
	constants.SubcommandGenerateKey:  (*backend).generateKey,
	constants.SubcommandExtractCert:  (*backend).extractCert,
	constants.SubcommandArmor:        (*backend).armor,
	constants.SubcommandDearmor:      (*backend).dearmor,
	constants.SubcommandSign:         (*backend).sign,
	constants.SubcommandVerify:       (*backend).verify,
	constants.SubcommandEncrypt:      (*backend).encrypt,
	constants.SubcommandDecrypt:      (*backend).decrypt,

	constants.SubcommandValidateUserID: (*backend).validateUserID,

	"x-cat":    (*backend).cat,
	"x-exit":   (*backend).exit,
	"x-sleep":  (*backend).sleep,
	"x-stderr": (*backend).writeStderr,
	"x-env":    (*backend).printEnv,
	"x-args":   (*backend).printArgs,
}

type backend struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	resolver *indirect.Resolver
	now      func() time.Time
}

// Main runs one backend invocation and returns its exit code.
func Main(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		return fail(stderr, sop.NewError(sop.KindMissingArg, "missing subcommand"))
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fail(stderr, sop.NewError(sop.KindUnsupportedSubcommand, "unsupported subcommand "+args[0]))
	}
	b := &backend{
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		resolver: &indirect.Resolver{Stdin: stdin, Stdout: stdout},
		now:      time.Now,
	}
	return fail(stderr, cmd(b, args[1:]))
}

func fail(stderr io.Writer, err error) int {
	if err == nil {
		return constants.ExitSuccess
	}
	var status exitStatus
	if errors.As(err, &status) {
		return int(status)
	}
	fmt.Fprintf(stderr, "%s: %v\n", Name, err)
	return sop.ExitCode(err)
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return sop.WrapError(sop.KindUnsupportedOption, err, fs.Name())
	}
	return nil
}

func (b *backend) readStdin() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(b.stdin); err != nil {
		return nil, errors.Wrap(err, "soptest: reading standard input")
	}
	return buf.Bytes(), nil
}

// secrets resolves password designators. Trailing whitespace is dropped
// and the result must be valid utf-8.
func (b *backend) secrets(raws []string) ([][]byte, error) {
	out := make([][]byte, 0, len(raws))
	for _, raw := range raws {
		data, err := b.resolver.ReadAll(raw)
		if err != nil {
			return nil, err
		}
		data = bytes.TrimRight(data, " \t\r\n")
		if !utf8.Valid(data) {
			return nil, sop.NewError(sop.KindPasswordNotHumanReadable, "password is not valid utf-8")
		}
		out = append(out, data)
	}
	return out, nil
}

func (b *backend) writeOutput(raw string, data []byte) error {
	if raw == "" {
		return nil
	}
	w, err := b.resolver.Output(raw)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "soptest: writing "+raw)
	}
	return w.Close()
}

func requireArgs(fs *pflag.FlagSet, n int) error {
	if fs.NArg() < n {
		return sop.NewError(sop.KindMissingArg, fs.Name()+" needs more arguments")
	}
	return nil
}
