package process

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ProtonMail/sop-external/internal"
	"github.com/ProtonMail/sop-external/sop"
)

// maxStderr is how much diagnostic output is kept from a child.
const maxStderr = 64 << 10

// ErrAlreadyMaterialized is returned when a Ready is materialized twice.
var ErrAlreadyMaterialized = errors.New("sop: output already materialized")

// Ready is a deferred backend invocation. WriteTo spawns the child, feeds
// it stdin, drains its stdout into the destination and classifies its exit
// code. It can be materialized once.
type Ready struct {
	engine *Engine
	ctx    context.Context
	desc   Descriptor
	stdin  io.Reader

	used        atomic.Bool
	state       *os.ProcessState
	stderr      []byte
	sideOutputs map[string][]byte
}

// Descriptor returns the invocation this Ready will perform.
func (r *Ready) Descriptor() Descriptor {
	return r.desc.clone()
}

// SideOutput returns the content of a side output after a successful
// materialization. ok is false if the backend did not write it.
func (r *Ready) SideOutput(name string) (data []byte, ok bool) {
	data, ok = r.sideOutputs[name]
	return data, ok
}

// ProcessState returns the state of the exited child, nil before
// materialization or if the child never started.
func (r *Ready) ProcessState() *os.ProcessState {
	return r.state
}

// Stderr returns the captured diagnostic output of the child.
func (r *Ready) Stderr() []byte {
	return r.stderr
}

// Bytes materializes into memory.
func (r *Ready) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := r.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo runs the backend and copies its standard output to w.
// Input is fed and output drained concurrently so neither pipe can fill up
// and stall the other. A failure to write the child's stdin is not
// reported when the child exited, its exit code is the verdict.
func (r *Ready) WriteTo(w io.Writer) (n int64, err error) {
	if !r.used.CompareAndSwap(false, true) {
		return 0, ErrAlreadyMaterialized
	}
	logger := r.engine.logger

	inv, err := r.prepare()
	if err != nil {
		return 0, err
	}
	defer inv.cleanup(logger)

	cmd := exec.CommandContext(r.ctx, r.desc.Executable, inv.argv...)
	cmd.Env = mergeEnv(r.engine.environ(), inv.env)
	stderr := &cappedBuffer{limit: maxStderr}
	cmd.Stderr = stderr

	var stdinPipe io.WriteCloser
	if r.stdin != nil {
		if stdinPipe, err = cmd.StdinPipe(); err != nil {
			return 0, &sop.TransportError{Op: "stdin pipe", Err: err}
		}
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return 0, &sop.TransportError{Op: "stdout pipe", Err: err}
	}

	logger.Debug("spawning backend", "executable", r.desc.Executable, "argv", inv.argv)
	if err := cmd.Start(); err != nil {
		return 0, &sop.TransportError{Op: "spawn " + r.desc.Executable, Err: err}
	}

	// The feeder is not waited for: once the child exited nothing reads
	// its stdin, and a source that never reaches EOF must not block the
	// caller. Its result is only looked at if it is already known.
	var fed atomic.Int64
	feedDone := make(chan feedResult, 1)
	if stdinPipe != nil {
		go func() {
			src := &trackingReader{r: r.stdin}
			written, copyErr := io.Copy(stdinPipe, src)
			fed.Store(written)
			closeErr := stdinPipe.Close()
			if src.err != nil {
				feedDone <- feedResult{sourceErr: &sop.TransportError{Op: "read input", Err: src.err}}
				_ = cmd.Process.Kill()
				return
			}
			if copyErr == nil {
				copyErr = closeErr
			}
			feedDone <- feedResult{pipeErr: copyErr}
		}()
	}

	var (
		g        errgroup.Group
		consumed int64
	)
	g.Go(func() error {
		dst := &trackingWriter{w: w}
		copied, copyErr := io.Copy(dst, stdoutPipe)
		consumed = copied
		if dst.err != nil {
			_ = cmd.Process.Kill()
			return &sop.TransportError{Op: "write output", Err: dst.err}
		}
		if copyErr != nil {
			_ = cmd.Process.Kill()
			return &sop.TransportError{Op: "read output", Err: copyErr}
		}
		return nil
	})

	pumpErr := g.Wait()
	// Wait also closes our end of the stdin pipe, which unblocks a feeder
	// stuck writing to an exited child.
	waitErr := cmd.Wait()
	r.state = cmd.ProcessState
	r.stderr = stderr.Bytes()

	var pipeErr error
	select {
	case res := <-feedDone:
		if res.sourceErr != nil {
			return consumed, res.sourceErr
		}
		pipeErr = res.pipeErr
	default:
	}
	if pumpErr != nil {
		return consumed, pumpErr
	}
	if ctxErr := r.ctx.Err(); ctxErr != nil {
		return consumed, &sop.TransportError{Op: "wait", Err: ctxErr}
	}

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) || exitErr.ExitCode() < 0 {
			return consumed, &sop.TransportError{Op: "wait", Err: waitErr}
		}
		code = exitErr.ExitCode()
	}
	logger.Debug("backend exited",
		"subcommand", r.desc.Subcommand,
		"exit_code", code,
		"bytes_in", fed.Load(),
		"bytes_out", consumed,
	)
	if pipeErr != nil {
		logger.Debug("ignoring input pipe failure", "subcommand", r.desc.Subcommand, "exit_code", code, "error", pipeErr)
	}
	if err := sop.Classify(code, internal.SanitizeString(string(r.stderr))); err != nil {
		return consumed, err
	}

	if err := inv.collect(r); err != nil {
		return consumed, err
	}
	return consumed, nil
}

// invocation is the materialized form of a descriptor.
type invocation struct {
	argv    []string
	env     map[string]string
	dir     string
	outputs map[string]string
}

func (r *Ready) prepare() (*invocation, error) {
	inv := &invocation{
		env:     make(map[string]string, len(r.desc.Env)+len(r.desc.Inputs)),
		outputs: make(map[string]string, len(r.desc.Outputs)),
	}
	for k, v := range r.desc.Env {
		inv.env[k] = v
	}

	replace := map[string]string{}
	for _, in := range r.desc.Inputs {
		if in.envSafe() {
			inv.env[in.Name] = string(in.Data)
			continue
		}
		if err := inv.mkdir(r.engine.tempDir); err != nil {
			return nil, err
		}
		path := filepath.Join(inv.dir, "input-"+in.Name)
		if err := os.WriteFile(path, in.Data, 0o600); err != nil {
			inv.cleanup(r.engine.logger)
			return nil, &sop.TransportError{Op: "write input file", Err: err}
		}
		replace[in.Designator()] = path
	}

	var sideOutputs []string
	for _, out := range r.desc.Outputs {
		if err := inv.mkdir(r.engine.tempDir); err != nil {
			return nil, err
		}
		path := filepath.Join(inv.dir, "output-"+out.Name)
		inv.outputs[out.Name] = path
		sideOutputs = append(sideOutputs, out.Flag+"="+path)
	}

	inv.argv = r.desc.argv(replace, sideOutputs)
	return inv, nil
}

func (inv *invocation) mkdir(parent string) error {
	if inv.dir != "" {
		return nil
	}
	dir, err := os.MkdirTemp(parent, "sop-external-")
	if err != nil {
		return &sop.TransportError{Op: "create temporary directory", Err: err}
	}
	inv.dir = dir
	return nil
}

func (inv *invocation) collect(r *Ready) error {
	r.sideOutputs = make(map[string][]byte, len(inv.outputs))
	for name, path := range inv.outputs {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return &sop.TransportError{Op: "read side output " + name, Err: err}
		}
		r.sideOutputs[name] = data
	}
	return nil
}

func (inv *invocation) cleanup(logger *slog.Logger) {
	if inv.dir == "" {
		return
	}
	if err := os.RemoveAll(inv.dir); err != nil {
		logger.Debug("cannot remove temporary directory", "dir", inv.dir, "error", err)
	}
	inv.dir = ""
}

// feedResult is the outcome of feeding the child's stdin. A pipe error
// only gets logged, a failing source fails the invocation.
type feedResult struct {
	sourceErr error
	pipeErr   error
}

// trackingReader remembers the error of the underlying reader so a failing
// source can be told apart from a failing pipe.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

// cappedBuffer keeps the first limit bytes written to it and drops the rest.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if room := c.limit - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) Bytes() []byte {
	return c.buf.Bytes()
}
