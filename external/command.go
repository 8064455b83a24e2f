package external

import (
	"context"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/internal/process"
	"github.com/ProtonMail/sop-external/sop"
)

// Environment variable prefixes of byte valued inputs. A counter shared by
// all inputs of one invocation is appended, e.g. KEY_0, CERT_1.
const (
	envKey            = "KEY"
	envCert           = "CERT"
	envKeyPassword    = "KEY_PASSWORD"
	envOldKeyPassword = "OLD_KEY_PASSWORD"
	envNewKeyPassword = "NEW_KEY_PASSWORD"
	envPassword       = "PASSWORD"
	envSessionKey     = "SESSION_KEY"
	envSignature      = "SIGNATURE"
	envSignWith       = "SIGN_WITH"
	envVerifyWith     = "VERIFY_WITH"
)

// Side outputs.
const (
	outMicAlg        = "micalg"
	outSessionKey    = "session-key"
	outVerifications = "verifications"
	outSignatures    = "signatures"
)

// command accumulates the descriptor of one invocation. The first error is
// kept and returned by the terminal call.
type command struct {
	sop     *SOP
	desc    process.Descriptor
	counter int
	err     error
}

func (c *command) flag(name string) {
	c.desc.Args = append(c.desc.Args, "--"+name)
}

func (c *command) flagValue(name, value string) {
	c.desc.Args = append(c.desc.Args, "--"+name+"="+value)
}

// timeFlag passes t, or "-" for the end of time.
func (c *command) timeFlag(name string, t time.Time) {
	if t.Equal(sop.EndOfTime) {
		c.flagValue(name, constants.TimeUnspecified)
		return
	}
	c.flagValue(name, sop.FormatUTC(t))
}

func (c *command) operand(value string) {
	c.desc.Operands = append(c.desc.Operands, value)
}

// input registers data under a fresh variable name and returns its
// designator.
func (c *command) input(prefix string, data []byte) string {
	name := prefix + "_" + strconv.Itoa(c.counter)
	c.counter++
	in := process.Input{Name: name, Data: data}
	c.desc.Inputs = append(c.desc.Inputs, in)
	return in.Designator()
}

func (c *command) inputFlag(flag, prefix string, data []byte) {
	c.flagValue(flag, c.input(prefix, data))
}

func (c *command) inputOperand(prefix string, data []byte) {
	c.operand(c.input(prefix, data))
}

// password passes a password through the flag. Passwords must be utf-8.
func (c *command) password(flag, prefix string, password []byte) {
	if !utf8.Valid(password) {
		c.setErr(sop.NewError(sop.KindPasswordNotHumanReadable, "--"+flag+" is not valid utf-8"))
		return
	}
	c.inputFlag(flag, prefix, password)
}

func (c *command) sideOutput(name, flag string) {
	c.desc.Outputs = append(c.desc.Outputs, process.Output{Name: name, Flag: "--" + flag})
}

func (c *command) setErr(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *command) invoke(ctx context.Context, stdin io.Reader) (*process.Ready, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.sop.engine.Invoke(ctx, c.desc, stdin), nil
}

func (c *command) ready(ctx context.Context, stdin io.Reader) (*Ready, error) {
	r, err := c.invoke(ctx, stdin)
	if err != nil {
		return nil, err
	}
	return &Ready{ready: r}, nil
}

// output runs the invocation to completion and returns its standard output.
func (c *command) output(ctx context.Context, stdin io.Reader) ([]byte, error) {
	r, err := c.invoke(ctx, stdin)
	if err != nil {
		return nil, err
	}
	return r.Bytes()
}

func withResult[T any](c *command, ctx context.Context, stdin io.Reader, result func(*process.Ready) (T, error)) (*ReadyWithResult[T], error) {
	r, err := c.invoke(ctx, stdin)
	if err != nil {
		return nil, err
	}
	return &ReadyWithResult[T]{ready: r, result: result}, nil
}
