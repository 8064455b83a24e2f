package soptest

import (
	"bytes"
	"crypto"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/ProtonMail/sop-external/armor"
	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/internal"
	"github.com/ProtonMail/sop-external/profile"
	"github.com/ProtonMail/sop-external/sop"
)

const verificationDescription = "signed by soptest"

var micAlgNames = map[crypto.Hash]string{
	crypto.SHA224: "pgp-sha224",
	crypto.SHA256: "pgp-sha256",
	crypto.SHA384: "pgp-sha384",
	crypto.SHA512: "pgp-sha512",
}

func fingerprint(fp []byte) string {
	return strings.ToUpper(hex.EncodeToString(fp))
}

func (b *backend) sign(args []string) error {
	fs := newFlagSet("sign")
	noArmor := fs.Bool("no-armor", false, "")
	as := fs.String("as", constants.SignAsBinary, "")
	micAlgOut := fs.String("micalg-out", "", "")
	keyPasswords := fs.StringArray("with-key-password", nil, "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *as != constants.SignAsBinary && *as != constants.SignAsText {
		return sop.NewError(sop.KindUnsupportedOption, "unsupported signature mode "+*as)
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}
	passwords, err := b.secrets(*keyPasswords)
	if err != nil {
		return err
	}
	signers, err := b.readKeys(fs.Args())
	if err != nil {
		return err
	}
	for _, signer := range signers {
		if signer.PrivateKey == nil {
			return sop.NewError(sop.KindKeyCannotSign, "not a secret key: "+fingerprint(signer.PrimaryKey.Fingerprint))
		}
		if err := unlock(signer, passwords); err != nil {
			return err
		}
	}

	var data bytes.Buffer
	if *as == constants.SignAsText {
		_, err = internal.ReadUtf8(&data, b.stdin)
	} else {
		_, err = data.ReadFrom(b.stdin)
	}
	if err != nil {
		return err
	}

	config := profile.Default().SignConfig()
	config.Time = b.now
	var sigs bytes.Buffer
	for _, signer := range signers {
		if *as == constants.SignAsText {
			err = openpgp.DetachSignText(&sigs, signer, bytes.NewReader(data.Bytes()), config)
		} else {
			err = openpgp.DetachSign(&sigs, signer, bytes.NewReader(data.Bytes()), config)
		}
		if err != nil {
			return sop.WrapError(sop.KindKeyCannotSign, err, "cannot sign with "+fingerprint(signer.PrimaryKey.Fingerprint))
		}
	}

	if err := b.writeOutput(*micAlgOut, []byte(micAlgNames[config.Hash()])); err != nil {
		return err
	}
	return b.emit(sigs.Bytes(), constants.PGPSignatureHeader, *noArmor)
}

func (b *backend) verify(args []string) error {
	fs := newFlagSet("verify")
	notBefore := fs.String("not-before", constants.TimeUnspecified, "")
	notAfter := fs.String("not-after", constants.TimeNow, "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireArgs(fs, 2); err != nil {
		return err
	}
	window, err := b.window(*notBefore, *notAfter)
	if err != nil {
		return err
	}
	signature, err := b.resolver.ReadAll(fs.Arg(0))
	if err != nil {
		return err
	}
	certs, err := b.readKeys(fs.Args()[1:])
	if err != nil {
		return err
	}
	data, err := b.readStdin()
	if err != nil {
		return err
	}

	verification, err := b.verifyDetached(certs, data, signature, window)
	if err != nil {
		return err
	}
	fmt.Fprintln(b.stdout, verification.String())
	return nil
}

type timeWindow struct {
	notBefore, notAfter time.Time
}

func (w timeWindow) contains(t time.Time) bool {
	return !t.Before(w.notBefore) && !t.After(w.notAfter)
}

func (b *backend) window(notBefore, notAfter string) (timeWindow, error) {
	now := b.now()
	nb, err := sop.ParseNotBefore(notBefore, now)
	if err != nil {
		return timeWindow{}, err
	}
	na, err := sop.ParseNotAfter(notAfter, now)
	if err != nil {
		return timeWindow{}, err
	}
	return timeWindow{notBefore: nb, notAfter: na}, nil
}

func (b *backend) verifyDetached(certs openpgp.EntityList, data, signature []byte, window timeWindow) (*sop.Verification, error) {
	signatureReader, err := armor.NewReader(bytes.NewReader(signature))
	if err != nil {
		return nil, err
	}
	sig, signer, err := openpgp.VerifyDetachedSignature(certs, bytes.NewReader(data), signatureReader, nil)
	if err != nil {
		return nil, sop.WrapError(sop.KindNoSignature, err, "no valid signature")
	}
	if !window.contains(sig.CreationTime) {
		return nil, sop.NewError(sop.KindNoSignature, "signature created outside of the accepted time range")
	}
	v := newVerification(sig, signer)
	return &v, nil
}

func newVerification(sig *packet.Signature, signer *openpgp.Entity) sop.Verification {
	mode := sop.ModeBinary
	if sig.SigType == packet.SigTypeText {
		mode = sop.ModeText
	}
	return sop.NewVerification(
		sig.CreationTime,
		signingKeyFingerprint(sig, signer),
		fingerprint(signer.PrimaryKey.Fingerprint),
		mode,
		verificationDescription,
	)
}

// signingKeyFingerprint finds the (sub)key of signer that issued sig.
func signingKeyFingerprint(sig *packet.Signature, signer *openpgp.Entity) string {
	if sig.IssuerKeyId != nil {
		for _, sub := range signer.Subkeys {
			if sub.PublicKey.KeyId == *sig.IssuerKeyId {
				return fingerprint(sub.PublicKey.Fingerprint)
			}
		}
	}
	return fingerprint(signer.PrimaryKey.Fingerprint)
}
