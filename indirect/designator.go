// Package indirect resolves indirect parameter designators such as
// `@ENV:NAME`, `@FD:3`, `-` and plain file paths into byte sources and sinks.
package indirect

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/sop"
)

// Kind is the variant of a designator.
type Kind int

const (
	Literal Kind = iota
	EnvironmentVariable
	FileDescriptor
	StandardStream
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case EnvironmentVariable:
		return "environment variable"
	case FileDescriptor:
		return "file descriptor"
	case StandardStream:
		return "standard stream"
	}
	return "unknown"
}

var fdPattern = regexp.MustCompile(`^\d{1,20}$`)

// Designator is a parsed indirect parameter.
type Designator struct {
	Kind Kind
	// Raw is the argument as given.
	Raw string
	// Name is the variable name of an EnvironmentVariable designator.
	Name string
	// FD is the descriptor number of a FileDescriptor designator.
	FD uint64
}

// Special reports whether the designator uses an `@` scheme.
func (d Designator) Special() bool {
	return d.Kind == EnvironmentVariable || d.Kind == FileDescriptor
}

func (d Designator) String() string {
	return d.Raw
}

// knownScheme reports whether raw starts with a recognised `@` scheme,
// whether or not the rest of it is well formed.
func knownScheme(raw string) bool {
	return strings.HasPrefix(raw, constants.DesignatorEnv) || strings.HasPrefix(raw, constants.DesignatorFD)
}

// Parse classifies raw. A string starting with `@` must match a known
// scheme, otherwise UnsupportedSpecialPrefix is returned.
func Parse(raw string) (Designator, error) {
	d := Designator{Raw: raw}
	switch {
	case raw == constants.DesignatorStdio:
		d.Kind = StandardStream
	case !strings.HasPrefix(raw, constants.DesignatorSentinel):
		d.Kind = Literal
	case strings.HasPrefix(raw, constants.DesignatorEnv):
		d.Kind = EnvironmentVariable
		d.Name = strings.TrimPrefix(raw, constants.DesignatorEnv)
		if d.Name == "" {
			return Designator{}, sop.NewError(sop.KindUnsupportedSpecialPrefix, "missing variable name in "+raw)
		}
	case strings.HasPrefix(raw, constants.DesignatorFD):
		d.Kind = FileDescriptor
		number := strings.TrimPrefix(raw, constants.DesignatorFD)
		if !fdPattern.MatchString(number) {
			return Designator{}, sop.NewError(sop.KindUnsupportedSpecialPrefix, "malformed descriptor in "+raw)
		}
		fd, err := strconv.ParseUint(number, 10, 64)
		if err != nil {
			return Designator{}, sop.WrapError(sop.KindUnsupportedSpecialPrefix, err, "malformed descriptor in "+raw)
		}
		d.FD = fd
	default:
		return Designator{}, sop.NewError(sop.KindUnsupportedSpecialPrefix, "unknown special designator "+raw)
	}
	return d, nil
}

// Env returns an environment variable designator for name.
func Env(name string) string {
	return constants.DesignatorEnv + name
}

// FD returns a descriptor designator for fd.
func FD(fd uint64) string {
	return constants.DesignatorFD + strconv.FormatUint(fd, 10)
}
