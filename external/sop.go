// Package external drives a stateless OpenPGP backend executable. Every
// subcommand of the command line contract has a builder; terminal calls
// return a Ready that spawns the backend when it is materialized.
//
//	s := external.New("/usr/bin/sqop")
//	ready, err := s.GenerateKey().UserID("Alice <alice@example.org>").Generate(ctx)
//	key, err := ready.Bytes()
package external

import (
	"log/slog"
	"maps"

	"github.com/ProtonMail/sop-external/internal/process"
	"github.com/ProtonMail/sop-external/sop"
)

// SOP is bound to one backend executable. It is safe for concurrent use,
// each call builds its own invocation.
type SOP struct {
	binary      string
	env         map[string]string
	subcommands map[string]bool
	engine      *process.Engine
	engineOpts  []process.Option
}

// Option configures a SOP.
type Option func(*SOP)

// WithEnv adds environment variables to every backend invocation. Values
// override the ambient environment.
func WithEnv(env map[string]string) Option {
	return func(s *SOP) {
		if s.env == nil {
			s.env = make(map[string]string, len(env))
		}
		maps.Copy(s.env, env)
	}
}

// WithLogger sets the logger receiving debug records about invocations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SOP) {
		s.engineOpts = append(s.engineOpts, process.WithLogger(logger))
	}
}

// WithTempDir sets where temporary side output files are created.
func WithTempDir(dir string) Option {
	return func(s *SOP) {
		s.engineOpts = append(s.engineOpts, process.WithTempDir(dir))
	}
}

// WithEnviron replaces the ambient environment source.
func WithEnviron(environ func() []string) Option {
	return func(s *SOP) {
		s.engineOpts = append(s.engineOpts, process.WithEnviron(environ))
	}
}

// WithSubcommands declares that the backend only implements the named
// subcommands. Other builders fail with UnsupportedSubcommand without
// spawning the backend.
func WithSubcommands(names ...string) Option {
	return func(s *SOP) {
		s.subcommands = make(map[string]bool, len(names))
		for _, name := range names {
			s.subcommands[name] = true
		}
	}
}

// New binds a SOP to the backend at binary.
func New(binary string, opts ...Option) *SOP {
	s := &SOP{binary: binary}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = process.NewEngine(s.engineOpts...)
	return s
}

// Binary returns the backend executable.
func (s *SOP) Binary() string {
	return s.binary
}

// Supports reports whether the backend was declared to implement
// subcommand.
func (s *SOP) Supports(subcommand string) bool {
	return s.subcommands == nil || s.subcommands[subcommand]
}

func (s *SOP) command(subcommand string) *command {
	c := &command{
		sop: s,
		desc: process.Descriptor{
			Executable: s.binary,
			Subcommand: subcommand,
			Env:        maps.Clone(s.env),
		},
	}
	if !s.Supports(subcommand) {
		c.err = sop.NewError(sop.KindUnsupportedSubcommand, subcommand+" is not implemented by "+s.binary)
	}
	return c
}
