package external

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/internal/process"
	"github.com/ProtonMail/sop-external/sop"
)

// Sign configures `sign`, producing detached signatures.
type Sign struct{ cmd *command }

// Sign starts a detached signature.
func (s *SOP) Sign() *Sign {
	return &Sign{cmd: s.command(constants.SubcommandSign)}
}

// NoArmor requests binary output.
func (s *Sign) NoArmor() *Sign {
	s.cmd.flag("no-armor")
	return s
}

// Mode sets the signature type, constants.SignAsBinary or
// constants.SignAsText.
func (s *Sign) Mode(mode string) *Sign {
	s.cmd.flagValue("as", mode)
	return s
}

// Key adds a signing key.
func (s *Sign) Key(key []byte) *Sign {
	s.cmd.inputOperand(envKey, key)
	return s
}

// WithKeyPassword adds a password to unlock the signing keys.
func (s *Sign) WithKeyPassword(password []byte) *Sign {
	s.cmd.password("with-key-password", envKeyPassword, password)
	return s
}

// Data returns the signatures over data. The result carries the micalg
// the backend reported.
func (s *Sign) Data(ctx context.Context, data io.Reader) (*ReadyWithResult[sop.SigningResult], error) {
	s.cmd.sideOutput(outMicAlg, "micalg-out")
	return withResult(s.cmd, ctx, data, func(r *process.Ready) (sop.SigningResult, error) {
		micalg, _ := r.SideOutput(outMicAlg)
		return sop.SigningResult{MicAlg: strings.TrimSpace(string(micalg))}, nil
	})
}

// Verify configures `verify` for detached signatures.
type Verify struct {
	cmd        *command
	signatures []byte
	certs      [][]byte
}

// Verify starts a detached signature verification.
func (s *SOP) Verify() *Verify {
	return &Verify{cmd: s.command(constants.SubcommandVerify)}
}

// NotBefore rejects signatures made before t.
func (v *Verify) NotBefore(t time.Time) *Verify {
	v.cmd.timeFlag("not-before", t)
	return v
}

// NotAfter rejects signatures made after t.
func (v *Verify) NotAfter(t time.Time) *Verify {
	v.cmd.timeFlag("not-after", t)
	return v
}

// Cert adds certificates whose signatures are accepted.
func (v *Verify) Cert(cert []byte) *Verify {
	v.certs = append(v.certs, cert)
	return v
}

// Signatures sets the detached signatures to check.
func (v *Verify) Signatures(signatures []byte) *Verify {
	v.signatures = signatures
	return v
}

// Data checks the signatures over data and returns one verification per
// accepted signature. No acceptable signature is ErrNoSignature.
func (v *Verify) Data(ctx context.Context, data io.Reader) ([]sop.Verification, error) {
	if v.signatures == nil {
		v.cmd.setErr(sop.NewError(sop.KindMissingArg, "verify needs signatures"))
	}
	if len(v.certs) == 0 {
		v.cmd.setErr(sop.NewError(sop.KindMissingArg, "verify needs at least one certificate"))
	}
	v.cmd.inputOperand(envSignature, v.signatures)
	for _, cert := range v.certs {
		v.cmd.inputOperand(envCert, cert)
	}
	out, err := v.cmd.output(ctx, data)
	if err != nil {
		return nil, err
	}
	return sop.ParseVerifications(string(out))
}

// InlineSign configures `inline-sign`.
type InlineSign struct{ cmd *command }

// InlineSign starts an inline signature.
func (s *SOP) InlineSign() *InlineSign {
	return &InlineSign{cmd: s.command(constants.SubcommandInlineSign)}
}

// NoArmor requests binary output.
func (s *InlineSign) NoArmor() *InlineSign {
	s.cmd.flag("no-armor")
	return s
}

// Mode sets the message type: constants.SignAsBinary, constants.SignAsText
// or constants.InlineSignAsClearSigned.
func (s *InlineSign) Mode(mode string) *InlineSign {
	s.cmd.flagValue("as", mode)
	return s
}

// Key adds a signing key.
func (s *InlineSign) Key(key []byte) *InlineSign {
	s.cmd.inputOperand(envKey, key)
	return s
}

// WithKeyPassword adds a password to unlock the signing keys.
func (s *InlineSign) WithKeyPassword(password []byte) *InlineSign {
	s.cmd.password("with-key-password", envKeyPassword, password)
	return s
}

// Data returns the signed message of data.
func (s *InlineSign) Data(ctx context.Context, data io.Reader) (*Ready, error) {
	return s.cmd.ready(ctx, data)
}

// InlineVerify configures `inline-verify`.
type InlineVerify struct{ cmd *command }

// InlineVerify starts an inline signature verification.
func (s *SOP) InlineVerify() *InlineVerify {
	return &InlineVerify{cmd: s.command(constants.SubcommandInlineVerify)}
}

// NotBefore rejects signatures made before t.
func (v *InlineVerify) NotBefore(t time.Time) *InlineVerify {
	v.cmd.timeFlag("not-before", t)
	return v
}

// NotAfter rejects signatures made after t.
func (v *InlineVerify) NotAfter(t time.Time) *InlineVerify {
	v.cmd.timeFlag("not-after", t)
	return v
}

// Cert adds certificates whose signatures are accepted.
func (v *InlineVerify) Cert(cert []byte) *InlineVerify {
	v.cmd.inputOperand(envCert, cert)
	return v
}

// Data returns the message content of the signed message data, and the
// verifications once materialized.
func (v *InlineVerify) Data(ctx context.Context, data io.Reader) (*ReadyWithResult[[]sop.Verification], error) {
	v.cmd.sideOutput(outVerifications, "verifications-out")
	return withResult(v.cmd, ctx, data, func(r *process.Ready) ([]sop.Verification, error) {
		out, _ := r.SideOutput(outVerifications)
		return sop.ParseVerifications(string(out))
	})
}

// InlineDetach configures `inline-detach`.
type InlineDetach struct{ cmd *command }

// InlineDetach starts splitting an inline signed message.
func (s *SOP) InlineDetach() *InlineDetach {
	return &InlineDetach{cmd: s.command(constants.SubcommandInlineDetach)}
}

// NoArmor requests binary signatures.
func (d *InlineDetach) NoArmor() *InlineDetach {
	d.cmd.flag("no-armor")
	return d
}

// Message returns the content of the signed message and, once
// materialized, its signatures.
func (d *InlineDetach) Message(ctx context.Context, message io.Reader) (*ReadyWithResult[[]byte], error) {
	d.cmd.sideOutput(outSignatures, "signatures-out")
	return withResult(d.cmd, ctx, message, func(r *process.Ready) ([]byte, error) {
		signatures, ok := r.SideOutput(outSignatures)
		if !ok {
			return nil, sop.NewError(sop.KindBadData, "backend wrote no signatures")
		}
		return signatures, nil
	})
}
