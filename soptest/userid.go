package soptest

import (
	"net/mail"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/ProtonMail/sop-external/armor"
	"github.com/ProtonMail/sop-external/sop"
)

// validateUserID accepts the certificates on stdin if each carries the
// user id. With authorities, the user id must also be certified by one of
// them.
func (b *backend) validateUserID(args []string) error {
	fs := newFlagSet("validate-userid")
	addrSpecOnly := fs.Bool("addr-spec-only", false, "")
	validateAt := fs.String("validate-at", "now", "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}
	if _, err := sop.ParseNotAfter(*validateAt, b.now()); err != nil {
		return err
	}
	userID := fs.Arg(0)
	authorities, err := b.readKeys(fs.Args()[1:])
	if err != nil {
		return err
	}
	in, err := armor.NewReader(b.stdin)
	if err != nil {
		return err
	}
	subjects, err := openpgp.ReadKeyRing(in)
	if err != nil {
		return sop.WrapError(sop.KindBadData, err, "cannot read certificates")
	}
	for _, subject := range subjects {
		if !boundTo(subject, userID, *addrSpecOnly, authorities) {
			return sop.NewError(sop.KindCertUserIDNoMatch,
				"certificate "+fingerprint(subject.PrimaryKey.Fingerprint)+" is not bound to "+userID)
		}
	}
	return nil
}

func boundTo(subject *openpgp.Entity, userID string, addrSpecOnly bool, authorities openpgp.EntityList) bool {
	for name, identity := range subject.Identities {
		if addrSpecOnly {
			if !sameAddress(identity.UserId.Email, userID) {
				continue
			}
		} else if name != userID {
			continue
		}
		if len(authorities) == 0 {
			return identity.SelfSignature != nil
		}
		for _, sig := range identity.Signatures {
			if sig.IssuerKeyId != nil && len(authorities.KeysById(*sig.IssuerKeyId)) > 0 {
				return true
			}
		}
	}
	return false
}

func sameAddress(email, want string) bool {
	if addr, err := mail.ParseAddress(want); err == nil {
		want = addr.Address
	}
	return email != "" && strings.EqualFold(email, want)
}
