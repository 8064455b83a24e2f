package external

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/internal/process"
	"github.com/ProtonMail/sop-external/sop"
)

// Encrypt configures `encrypt`.
type Encrypt struct{ cmd *command }

// Encrypt starts an encryption.
func (s *SOP) Encrypt() *Encrypt {
	return &Encrypt{cmd: s.command(constants.SubcommandEncrypt)}
}

// NoArmor requests binary output.
func (e *Encrypt) NoArmor() *Encrypt {
	e.cmd.flag("no-armor")
	return e
}

// Mode sets the literal data format, constants.EncryptAsBinary or
// constants.EncryptAsText.
func (e *Encrypt) Mode(mode string) *Encrypt {
	e.cmd.flagValue("as", mode)
	return e
}

// EncryptFor restricts the encryption subkeys by purpose, one of
// constants.EncryptForStorage, EncryptForCommunications, EncryptForAny.
func (e *Encrypt) EncryptFor(purpose string) *Encrypt {
	e.cmd.flagValue("for", purpose)
	return e
}

// SignWith adds a key signing the plaintext.
func (e *Encrypt) SignWith(key []byte) *Encrypt {
	e.cmd.inputFlag("sign-with", envSignWith, key)
	return e
}

// WithKeyPassword adds a password to unlock the signing keys.
func (e *Encrypt) WithKeyPassword(password []byte) *Encrypt {
	e.cmd.password("with-key-password", envKeyPassword, password)
	return e
}

// WithPassword encrypts for a password.
func (e *Encrypt) WithPassword(password []byte) *Encrypt {
	e.cmd.password("with-password", envPassword, password)
	return e
}

// WithCert encrypts for the certificates in cert.
func (e *Encrypt) WithCert(cert []byte) *Encrypt {
	e.cmd.inputOperand(envCert, cert)
	return e
}

// Profile selects one of the backend's encrypt profiles.
func (e *Encrypt) Profile(name string) *Encrypt {
	e.cmd.flagValue("profile", name)
	return e
}

// Plaintext returns the encrypted message. The result carries the session
// key if the backend reported it.
func (e *Encrypt) Plaintext(ctx context.Context, plaintext io.Reader) (*ReadyWithResult[sop.EncryptionResult], error) {
	e.cmd.sideOutput(outSessionKey, "session-key-out")
	return withResult(e.cmd, ctx, plaintext, func(r *process.Ready) (sop.EncryptionResult, error) {
		sk, err := sessionKeyOutput(r)
		return sop.EncryptionResult{SessionKey: sk}, err
	})
}

func sessionKeyOutput(r *process.Ready) (*sop.SessionKey, error) {
	data, _ := r.SideOutput(outSessionKey)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return sop.ParseSessionKey(string(data))
}

// Decrypt configures `decrypt`.
type Decrypt struct {
	cmd    *command
	verify bool
}

// Decrypt starts a decryption.
func (s *SOP) Decrypt() *Decrypt {
	return &Decrypt{cmd: s.command(constants.SubcommandDecrypt)}
}

// VerifyNotBefore rejects signatures made before t.
func (d *Decrypt) VerifyNotBefore(t time.Time) *Decrypt {
	d.cmd.timeFlag("verify-not-before", t)
	return d
}

// VerifyNotAfter rejects signatures made after t.
func (d *Decrypt) VerifyNotAfter(t time.Time) *Decrypt {
	d.cmd.timeFlag("verify-not-after", t)
	return d
}

// VerifyWithCert verifies signatures of the message against cert.
func (d *Decrypt) VerifyWithCert(cert []byte) *Decrypt {
	d.cmd.inputFlag("verify-with", envVerifyWith, cert)
	d.verify = true
	return d
}

// WithSessionKey decrypts with a known session key.
func (d *Decrypt) WithSessionKey(sk sop.SessionKey) *Decrypt {
	d.cmd.inputFlag("with-session-key", envSessionKey, []byte(sk.String()))
	return d
}

// WithPassword decrypts with a password.
func (d *Decrypt) WithPassword(password []byte) *Decrypt {
	d.cmd.password("with-password", envPassword, password)
	return d
}

// WithKey decrypts with the secret keys in key.
func (d *Decrypt) WithKey(key []byte) *Decrypt {
	d.cmd.inputOperand(envKey, key)
	return d
}

// WithKeyPassword adds a password to unlock the decryption keys.
func (d *Decrypt) WithKeyPassword(password []byte) *Decrypt {
	d.cmd.password("with-key-password", envKeyPassword, password)
	return d
}

// Ciphertext returns the plaintext of ciphertext. The result carries the
// session key and, if certificates were given, the verifications.
func (d *Decrypt) Ciphertext(ctx context.Context, ciphertext io.Reader) (*ReadyWithResult[sop.DecryptionResult], error) {
	d.cmd.sideOutput(outSessionKey, "session-key-out")
	if d.verify {
		d.cmd.sideOutput(outVerifications, "verify-out")
	}
	return withResult(d.cmd, ctx, ciphertext, func(r *process.Ready) (sop.DecryptionResult, error) {
		var res sop.DecryptionResult
		sk, err := sessionKeyOutput(r)
		if err != nil {
			return res, err
		}
		res.SessionKey = sk
		if out, ok := r.SideOutput(outVerifications); ok {
			if res.Verifications, err = sop.ParseVerifications(string(out)); err != nil {
				return res, err
			}
		}
		return res, nil
	})
}
