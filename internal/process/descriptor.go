// Package process spawns stateless OpenPGP backends and pumps bytes through
// them.
package process

import (
	"bytes"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/ProtonMail/sop-external/indirect"
)

// maxEnvValue is the largest input passed through the child environment.
// Larger values go through a temporary file.
const maxEnvValue = 64 << 10

// Input is a byte valued argument handed to the child through an
// environment variable. Its designator (`@ENV:<Name>`) must appear in Args
// or Operands, either alone or as the value of a `--flag=`.
type Input struct {
	Name string
	Data []byte
}

// Designator returns the argument that refers to the input.
func (in Input) Designator() string {
	return indirect.Env(in.Name)
}

func (in Input) envSafe() bool {
	return len(in.Data) <= maxEnvValue && utf8.Valid(in.Data) && bytes.IndexByte(in.Data, 0) < 0
}

// Output is a side output the child writes to a file named by Flag.
type Output struct {
	Name string
	Flag string
}

// Descriptor describes one backend invocation. It is built once per call
// and not modified after Invoke.
type Descriptor struct {
	Executable string
	Subcommand string
	// Args are flags in the order they are passed.
	Args []string
	// Operands are positional arguments, passed after all flags.
	Operands []string
	// Env holds overrides layered on top of the ambient environment.
	Env     map[string]string
	Inputs  []Input
	Outputs []Output
}

func (d Descriptor) clone() Descriptor {
	d.Args = slices.Clone(d.Args)
	d.Operands = slices.Clone(d.Operands)
	d.Env = maps.Clone(d.Env)
	d.Inputs = slices.Clone(d.Inputs)
	d.Outputs = slices.Clone(d.Outputs)
	return d
}

// Argv returns the argument vector without the executable. Side output
// flags are omitted since their paths only exist once the process runs.
func (d Descriptor) Argv() []string {
	return d.argv(nil, nil)
}

func (d Descriptor) argv(replace map[string]string, sideOutputs []string) []string {
	argv := make([]string, 0, 1+len(d.Args)+len(sideOutputs)+len(d.Operands))
	argv = append(argv, d.Subcommand)
	for _, arg := range d.Args {
		argv = append(argv, replaceDesignator(arg, replace))
	}
	argv = append(argv, sideOutputs...)
	for _, arg := range d.Operands {
		argv = append(argv, replaceDesignator(arg, replace))
	}
	return argv
}

func replaceDesignator(arg string, replace map[string]string) string {
	for designator, path := range replace {
		if arg == designator {
			return path
		}
		if prefix, ok := strings.CutSuffix(arg, "="+designator); ok {
			return prefix + "=" + path
		}
	}
	return arg
}
