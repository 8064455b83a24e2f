package indirect

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/ProtonMail/sop-external/sop"
)

// Resolver opens the sources and sinks designators refer to.
// The zero value resolves against the process working directory,
// environment and standard streams.
type Resolver struct {
	// WorkDir is the base of relative literal paths.
	WorkDir string
	// LookupEnv reads environment variables. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	Stdin     io.Reader
	Stdout    io.Writer
}

func (r *Resolver) path(raw string) string {
	if filepath.IsAbs(raw) || r.WorkDir == "" {
		return raw
	}
	return filepath.Join(r.WorkDir, raw)
}

func (r *Resolver) lookupEnv(name string) (string, bool) {
	if r.LookupEnv != nil {
		return r.LookupEnv(name)
	}
	return os.LookupEnv(name)
}

// parse parses raw and rejects special designators that collide with an
// existing file of the same name. The collision is checked before the
// scheme payload, so `@FD:name` next to a file "@FD:name" is ambiguous
// rather than malformed.
func (r *Resolver) parse(raw string) (Designator, error) {
	if knownScheme(raw) {
		if _, statErr := os.Lstat(r.path(raw)); statErr == nil {
			return Designator{}, sop.NewError(
				sop.KindAmbiguousInput,
				"designator "+raw+" collides with an existing file of the same name",
			)
		}
	}
	return Parse(raw)
}

// Input opens the source raw designates.
func (r *Resolver) Input(raw string) (io.ReadCloser, error) {
	d, err := r.parse(raw)
	if err != nil {
		return nil, err
	}
	switch d.Kind {
	case StandardStream:
		if r.Stdin == nil {
			return io.NopCloser(os.Stdin), nil
		}
		return io.NopCloser(r.Stdin), nil
	case EnvironmentVariable:
		value, ok := r.lookupEnv(d.Name)
		if !ok || strings.TrimSpace(value) == "" {
			return nil, sop.NewError(sop.KindMissingInput, "environment variable "+d.Name+" is unset or empty")
		}
		return io.NopCloser(strings.NewReader(value)), nil
	case FileDescriptor:
		f, err := openDescriptor(d, false)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	path := r.path(raw)
	info, err := os.Stat(path)
	if err != nil {
		return nil, sop.WrapError(sop.KindMissingInput, err, "cannot read "+raw)
	}
	if !info.Mode().IsRegular() {
		return nil, sop.NewError(sop.KindMissingInput, raw+" is not a regular file")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, sop.WrapError(sop.KindMissingInput, err, "cannot open "+raw)
	}
	return f, nil
}

// ReadAll reads the whole source raw designates.
func (r *Resolver) ReadAll(raw string) ([]byte, error) {
	rc, err := r.Input(raw)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rc); err != nil {
		return nil, errors.Wrap(err, "sop: reading "+raw)
	}
	return buf.Bytes(), nil
}

// Output opens the sink raw designates. Literal paths must not exist yet
// and are created exclusively.
func (r *Resolver) Output(raw string) (io.WriteCloser, error) {
	d, err := r.parse(raw)
	if err != nil {
		return nil, err
	}
	switch d.Kind {
	case StandardStream:
		if r.Stdout == nil {
			return nopWriteCloser{os.Stdout}, nil
		}
		return nopWriteCloser{r.Stdout}, nil
	case EnvironmentVariable:
		return nil, sop.NewError(sop.KindUnsupportedSpecialPrefix, "environment variables cannot be used for output")
	case FileDescriptor:
		f, err := openDescriptor(d, true)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	f, err := os.OpenFile(r.path(raw), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, sop.WrapError(sop.KindOutputExists, err, raw+" already exists")
		}
		return nil, sop.WrapError(sop.KindMissingInput, err, "cannot create "+raw)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
