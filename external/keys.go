package external

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/sop"
)

// GenerateKey configures `generate-key`.
type GenerateKey struct{ cmd *command }

// GenerateKey starts a key generation.
func (s *SOP) GenerateKey() *GenerateKey {
	return &GenerateKey{cmd: s.command(constants.SubcommandGenerateKey)}
}

// NoArmor requests binary output.
func (g *GenerateKey) NoArmor() *GenerateKey {
	g.cmd.flag("no-armor")
	return g
}

// UserID adds a user id. The first one is primary.
func (g *GenerateKey) UserID(userID string) *GenerateKey {
	g.cmd.operand(userID)
	return g
}

// WithKeyPassword locks the generated key.
func (g *GenerateKey) WithKeyPassword(password []byte) *GenerateKey {
	g.cmd.password("with-key-password", envKeyPassword, password)
	return g
}

// Profile selects one of the backend's generate-key profiles.
func (g *GenerateKey) Profile(name string) *GenerateKey {
	g.cmd.flagValue("profile", name)
	return g
}

// SigningOnly generates a key without encryption capability.
func (g *GenerateKey) SigningOnly() *GenerateKey {
	g.cmd.flag("signing-only")
	return g
}

// Generate returns the secret key once materialized.
func (g *GenerateKey) Generate(ctx context.Context) (*Ready, error) {
	return g.cmd.ready(ctx, nil)
}

// ExtractCert configures `extract-cert`.
type ExtractCert struct{ cmd *command }

// ExtractCert starts a certificate extraction.
func (s *SOP) ExtractCert() *ExtractCert {
	return &ExtractCert{cmd: s.command(constants.SubcommandExtractCert)}
}

// NoArmor requests binary output.
func (e *ExtractCert) NoArmor() *ExtractCert {
	e.cmd.flag("no-armor")
	return e
}

// Key returns the certificate of the secret key read from key.
func (e *ExtractCert) Key(ctx context.Context, key io.Reader) (*Ready, error) {
	return e.cmd.ready(ctx, key)
}

// ChangeKeyPassword configures `change-key-password`.
type ChangeKeyPassword struct{ cmd *command }

// ChangeKeyPassword starts a password change.
func (s *SOP) ChangeKeyPassword() *ChangeKeyPassword {
	return &ChangeKeyPassword{cmd: s.command(constants.SubcommandChangeKeyPassword)}
}

// NoArmor requests binary output.
func (p *ChangeKeyPassword) NoArmor() *ChangeKeyPassword {
	p.cmd.flag("no-armor")
	return p
}

// OldKeyPassword adds a password that may unlock the keys. Can be given
// several times.
func (p *ChangeKeyPassword) OldKeyPassword(password []byte) *ChangeKeyPassword {
	p.cmd.password("old-key-password", envOldKeyPassword, password)
	return p
}

// NewKeyPassword sets the password to lock the keys with. Without it the
// keys are unlocked.
func (p *ChangeKeyPassword) NewKeyPassword(password []byte) *ChangeKeyPassword {
	p.cmd.password("new-key-password", envNewKeyPassword, password)
	return p
}

// Keys returns the re-locked keys read from keys.
func (p *ChangeKeyPassword) Keys(ctx context.Context, keys io.Reader) (*Ready, error) {
	return p.cmd.ready(ctx, keys)
}

// RevokeKey configures `revoke-key`.
type RevokeKey struct{ cmd *command }

// RevokeKey starts a key revocation.
func (s *SOP) RevokeKey() *RevokeKey {
	return &RevokeKey{cmd: s.command(constants.SubcommandRevokeKey)}
}

// NoArmor requests binary output.
func (r *RevokeKey) NoArmor() *RevokeKey {
	r.cmd.flag("no-armor")
	return r
}

// WithKeyPassword adds a password to unlock the keys.
func (r *RevokeKey) WithKeyPassword(password []byte) *RevokeKey {
	r.cmd.password("with-key-password", envKeyPassword, password)
	return r
}

// Keys returns the revocation certificates of the keys read from keys.
func (r *RevokeKey) Keys(ctx context.Context, keys io.Reader) (*Ready, error) {
	return r.cmd.ready(ctx, keys)
}

// UpdateKey configures `update-key`.
type UpdateKey struct{ cmd *command }

// UpdateKey starts a key update.
func (s *SOP) UpdateKey() *UpdateKey {
	return &UpdateKey{cmd: s.command(constants.SubcommandUpdateKey)}
}

// NoArmor requests binary output.
func (u *UpdateKey) NoArmor() *UpdateKey {
	u.cmd.flag("no-armor")
	return u
}

// SigningOnly does not add encryption capability.
func (u *UpdateKey) SigningOnly() *UpdateKey {
	u.cmd.flag("signing-only")
	return u
}

// NoNewMechanisms keeps the algorithm preferences unchanged.
func (u *UpdateKey) NoNewMechanisms() *UpdateKey {
	u.cmd.flag("no-new-mechanisms")
	return u
}

// WithKeyPassword adds a password to unlock the key.
func (u *UpdateKey) WithKeyPassword(password []byte) *UpdateKey {
	u.cmd.password("with-key-password", envKeyPassword, password)
	return u
}

// MergeCerts merges third party certifications from certs.
func (u *UpdateKey) MergeCerts(certs []byte) *UpdateKey {
	u.cmd.inputFlag("merge-certs", envCert, certs)
	return u
}

// Key returns the updated key read from key.
func (u *UpdateKey) Key(ctx context.Context, key io.Reader) (*Ready, error) {
	return u.cmd.ready(ctx, key)
}

// MergeCerts configures `merge-certs`.
type MergeCerts struct{ cmd *command }

// MergeCerts starts a certificate merge.
func (s *SOP) MergeCerts() *MergeCerts {
	return &MergeCerts{cmd: s.command(constants.SubcommandMergeCerts)}
}

// NoArmor requests binary output.
func (m *MergeCerts) NoArmor() *MergeCerts {
	m.cmd.flag("no-armor")
	return m
}

// Updates adds certificates whose components are merged into the base.
func (m *MergeCerts) Updates(certs []byte) *MergeCerts {
	m.cmd.inputOperand(envCert, certs)
	return m
}

// BaseCertificates returns the merged certificates of base.
func (m *MergeCerts) BaseCertificates(ctx context.Context, base io.Reader) (*Ready, error) {
	return m.cmd.ready(ctx, base)
}

// CertifyUserID configures `certify-userid`.
type CertifyUserID struct {
	cmd  *command
	keys [][]byte
}

// CertifyUserID starts a user id certification.
func (s *SOP) CertifyUserID() *CertifyUserID {
	return &CertifyUserID{cmd: s.command(constants.SubcommandCertifyUserID)}
}

// NoArmor requests binary output.
func (c *CertifyUserID) NoArmor() *CertifyUserID {
	c.cmd.flag("no-armor")
	return c
}

// UserID adds a user id to certify.
func (c *CertifyUserID) UserID(userID string) *CertifyUserID {
	c.cmd.flagValue("userid", userID)
	return c
}

// WithKeyPassword adds a password to unlock the certifying keys.
func (c *CertifyUserID) WithKeyPassword(password []byte) *CertifyUserID {
	c.cmd.password("with-key-password", envKeyPassword, password)
	return c
}

// NoRequireSelfSig certifies user ids that are not self signed.
func (c *CertifyUserID) NoRequireSelfSig() *CertifyUserID {
	c.cmd.flag("no-require-self-sig")
	return c
}

// Keys adds certifying keys.
func (c *CertifyUserID) Keys(keys []byte) *CertifyUserID {
	c.keys = append(c.keys, keys)
	return c
}

// Certs returns the certified certificates read from certs.
func (c *CertifyUserID) Certs(ctx context.Context, certs io.Reader) (*Ready, error) {
	if len(c.keys) > 0 {
		c.cmd.operand("--")
	}
	for _, key := range c.keys {
		c.cmd.inputOperand(envKey, key)
	}
	return c.cmd.ready(ctx, certs)
}

// ValidateUserID configures `validate-userid`.
type ValidateUserID struct {
	cmd         *command
	userID      string
	authorities [][]byte
}

// ValidateUserID starts a user id validation.
func (s *SOP) ValidateUserID() *ValidateUserID {
	return &ValidateUserID{cmd: s.command(constants.SubcommandValidateUserID)}
}

// AddrSpecOnly treats the user id as an email address.
func (v *ValidateUserID) AddrSpecOnly() *ValidateUserID {
	v.cmd.flag("addr-spec-only")
	return v
}

// UserID sets the user id to validate.
func (v *ValidateUserID) UserID(userID string) *ValidateUserID {
	v.userID = userID
	return v
}

// Authorities adds certificates trusted to certify the user id.
func (v *ValidateUserID) Authorities(certs []byte) *ValidateUserID {
	v.authorities = append(v.authorities, certs)
	return v
}

// ValidateAt evaluates certifications at t instead of now.
func (v *ValidateUserID) ValidateAt(t time.Time) *ValidateUserID {
	v.cmd.timeFlag("validate-at", t)
	return v
}

// Subjects reports whether every certificate read from subjects is bound
// to the user id. A backend verdict of no match is false, not an error.
func (v *ValidateUserID) Subjects(ctx context.Context, subjects io.Reader) (bool, error) {
	if v.userID == "" {
		v.cmd.setErr(sop.NewError(sop.KindMissingArg, "validate-userid needs a user id"))
	}
	v.cmd.operand(v.userID)
	for _, cert := range v.authorities {
		v.cmd.inputOperand(envCert, cert)
	}
	_, err := v.cmd.output(ctx, subjects)
	if errors.Is(err, sop.ErrCertUserIDNoMatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
