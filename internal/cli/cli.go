// Package cli adds the sopx commands to a parent cobra.Command. Each command
// resolves its own indirect parameters and forwards the operation to an
// external stateless OpenPGP backend.
package cli

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/external"
	"github.com/ProtonMail/sop-external/indirect"
	"github.com/ProtonMail/sop-external/sop"
)

// EnvBackend names the environment variable holding the default backend.
const EnvBackend = "SOPX_BACKEND"

// commandOpts contains configured options.
type commandOpts struct {
	backend    string
	backendEnv map[string]string
	debug      bool

	lookupEnv func(string) (string, bool)
	now       func() time.Time
	sopOpts   []external.Option
}

// CommandOpt are used to configure optional command behavior.
type CommandOpt func(*commandOpts) error

// OptLookupEnv sets the environment lookup used for the default backend
// and `@ENV:` designators.
func OptLookupEnv(lookupEnv func(string) (string, bool)) CommandOpt {
	return func(co *commandOpts) error {
		co.lookupEnv = lookupEnv
		return nil
	}
}

// OptNow sets the clock used to resolve "now" in time arguments.
func OptNow(now func() time.Time) CommandOpt {
	return func(co *commandOpts) error {
		co.now = now
		return nil
	}
}

// OptSOP passes options to every backend binding.
func OptSOP(opts ...external.Option) CommandOpt {
	return func(co *commandOpts) error {
		co.sopOpts = append(co.sopOpts, opts...)
		return nil
	}
}

// command holds the state shared by all commands of one tree.
type command struct {
	opts *commandOpts
}

// AddCommands adds the sopx commands and persistent flags to cmd according
// to opts.
func AddCommands(cmd *cobra.Command, opts ...CommandOpt) error {
	co := &commandOpts{
		lookupEnv: os.LookupEnv,
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(co); err != nil {
			return err
		}
	}

	defaultBackend, _ := co.lookupEnv(EnvBackend)
	flags := cmd.PersistentFlags()
	flags.StringVar(&co.backend, "backend-binary", defaultBackend, "backend executable (default $"+EnvBackend+")")
	flags.StringToStringVar(&co.backendEnv, "backend-env", nil, "extra environment `KEY=VALUE` for the backend")
	flags.BoolVar(&co.debug, "debug", false, "log backend invocations")

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return sop.WrapError(sop.KindUnsupportedOption, err, "")
	})
	cmd.Args = cobra.ArbitraryArgs
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return sop.NewError(sop.KindUnsupportedSubcommand, "unknown subcommand "+args[0])
	}

	c := &command{opts: co}
	cmd.AddCommand(
		c.getVersion(),
		c.getListProfiles(),
		c.getGenerateKey(),
		c.getExtractCert(),
		c.getSign(),
		c.getVerify(),
		c.getEncrypt(),
		c.getDecrypt(),
		c.getArmor(),
		c.getDearmor(),
	)
	return nil
}

// bind binds the configured backend.
func (c *command) bind(cmd *cobra.Command) (*external.SOP, error) {
	if c.opts.backend == "" {
		return nil, sop.NewError(sop.KindMissingArg, "no backend, set --backend-binary or $"+EnvBackend)
	}
	level := slog.LevelWarn
	if c.opts.debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	opts := append([]external.Option{
		external.WithEnv(c.opts.backendEnv),
		external.WithLogger(logger),
	}, c.opts.sopOpts...)
	return external.New(c.opts.backend, opts...), nil
}

func (c *command) resolver(cmd *cobra.Command) *indirect.Resolver {
	return &indirect.Resolver{
		LookupEnv: c.opts.lookupEnv,
		Stdin:     cmd.InOrStdin(),
		Stdout:    cmd.OutOrStdout(),
	}
}

// readAll resolves every designator in raws.
func readAll(r *indirect.Resolver, raws []string) ([][]byte, error) {
	out := make([][]byte, 0, len(raws))
	for _, raw := range raws {
		data, err := r.ReadAll(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// writeTo writes data to the sink designated by raw. An empty raw writes
// nothing.
func writeTo(r *indirect.Resolver, raw string, data []byte) error {
	if raw == "" {
		return nil
	}
	w, err := r.Output(raw)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrap(err, "sopx: writing "+raw)
	}
	return errors.Wrap(w.Close(), "sopx: closing "+raw)
}

// timeRange holds --not-before/--not-after style flags.
type timeRange struct {
	notBefore string
	notAfter  string
}

func (t *timeRange) register(flags *pflag.FlagSet, prefix string) {
	flags.StringVar(&t.notBefore, prefix+"not-before", constants.TimeUnspecified, "reject signatures made before `DATE`")
	flags.StringVar(&t.notAfter, prefix+"not-after", constants.TimeNow, "reject signatures made after `DATE`")
}

// apply passes bounds other than the backend defaults to set.
func (t *timeRange) apply(now time.Time, setNotBefore, setNotAfter func(time.Time)) error {
	if t.notBefore != constants.TimeUnspecified {
		nb, err := sop.ParseNotBefore(t.notBefore, now)
		if err != nil {
			return err
		}
		setNotBefore(nb)
	}
	if t.notAfter != constants.TimeNow {
		na, err := sop.ParseNotAfter(t.notAfter, now)
		if err != nil {
			return err
		}
		setNotAfter(na)
	}
	return nil
}

func copyReady(w io.Writer, ready *external.Ready, err error) error {
	if err != nil {
		return err
	}
	_, err = ready.WriteTo(w)
	return err
}
