package process

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Engine spawns backend processes.
type Engine struct {
	logger  *slog.Logger
	environ func() []string
	tempDir string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for debug records. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEnviron sets the source of the ambient environment. Defaults to
// os.Environ.
func WithEnviron(environ func() []string) Option {
	return func(e *Engine) {
		if environ != nil {
			e.environ = environ
		}
	}
}

// WithTempDir sets the parent directory of the temporary files used for
// side outputs and large inputs. Defaults to os.TempDir.
func WithTempDir(dir string) Option {
	return func(e *Engine) {
		e.tempDir = dir
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invoke returns a deferred invocation of d. Nothing is spawned until the
// returned Ready is materialized. stdin may be nil for no input.
// Cancelling ctx kills a running child.
func (e *Engine) Invoke(ctx context.Context, d Descriptor, stdin io.Reader) *Ready {
	return &Ready{
		engine: e,
		ctx:    ctx,
		desc:   d.clone(),
		stdin:  stdin,
	}
}
