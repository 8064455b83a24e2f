package soptest

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Subcommands below are not part of the stateless OpenPGP contract. They
// let engine tests drive the backend into specific process behaviours.

// cat echoes standard input.
func (b *backend) cat(_ []string) error {
	_, err := io.Copy(b.stdout, b.stdin)
	return errors.Wrap(err, "soptest: copying")
}

// exit ends with the given code without reading standard input.
func (b *backend) exit(args []string) error {
	code, err := exitCodeArg(args)
	if err != nil {
		return err
	}
	return exitStatus(code)
}

// sleep blocks until killed.
func (b *backend) sleep(_ []string) error {
	time.Sleep(time.Hour)
	return nil
}

// writeStderr prints its second argument to standard error and exits with
// the first.
func (b *backend) writeStderr(args []string) error {
	code, err := exitCodeArg(args)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		fmt.Fprintln(b.stderr, args[1])
	}
	return exitStatus(code)
}

// printEnv prints the value of each named environment variable.
func (b *backend) printEnv(args []string) error {
	for _, name := range args {
		fmt.Fprintf(b.stdout, "%s=%s\n", name, os.Getenv(name))
	}
	return nil
}

// printArgs prints each argument on its own line.
func (b *backend) printArgs(args []string) error {
	for _, arg := range args {
		fmt.Fprintln(b.stdout, arg)
	}
	return nil
}

func exitCodeArg(args []string) (int, error) {
	if len(args) == 0 {
		return 0, exitStatus(2)
	}
	code, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, exitStatus(2)
	}
	return code, nil
}
