package soptest

import (
	"bytes"
	"io"

	"github.com/ProtonMail/go-crypto/openpgp"
	pgpErrors "github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/pkg/errors"

	"github.com/ProtonMail/sop-external/armor"
	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/profile"
	"github.com/ProtonMail/sop-external/sop"
)

func (b *backend) encrypt(args []string) error {
	fs := newFlagSet("encrypt")
	noArmor := fs.Bool("no-armor", false, "")
	as := fs.String("as", constants.EncryptAsBinary, "")
	purpose := fs.String("for", constants.EncryptForAny, "")
	withPasswords := fs.StringArray("with-password", nil, "")
	signWith := fs.StringArray("sign-with", nil, "")
	keyPasswords := fs.StringArray("with-key-password", nil, "")
	profileName := fs.String("profile", "", "")
	_ = fs.String("session-key-out", "", "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	switch *as {
	case constants.EncryptAsBinary, constants.EncryptAsText:
	default:
		return sop.NewError(sop.KindUnsupportedOption, "unsupported encryption mode "+*as)
	}
	switch *purpose {
	case constants.EncryptForAny, constants.EncryptForStorage, constants.EncryptForCommunications:
	default:
		return sop.NewError(sop.KindUnsupportedOption, "unsupported encryption purpose "+*purpose)
	}
	preset, ok := profile.Lookup(constants.SubcommandEncrypt, *profileName)
	if !ok {
		return sop.NewError(sop.KindUnsupportedProfile, "unknown profile "+*profileName)
	}
	if fs.NArg() == 0 && len(*withPasswords) == 0 {
		return sop.NewError(sop.KindMissingArg, "encrypt needs certificates or a password")
	}
	if len(*withPasswords) > 0 && (fs.NArg() > 0 || len(*signWith) > 0 || len(*withPasswords) > 1) {
		return sop.NewError(sop.KindUnsupportedOption, "only a single password without certificates or signers is supported")
	}

	config := preset.EncryptionConfig()
	config.Time = b.now
	hints := &openpgp.FileHints{IsBinary: *as == constants.EncryptAsBinary}

	var out bytes.Buffer
	var plaintext io.WriteCloser
	if len(*withPasswords) > 0 {
		passwords, err := b.secrets(*withPasswords)
		if err != nil {
			return err
		}
		if plaintext, err = openpgp.SymmetricallyEncrypt(&out, passwords[0], hints, config); err != nil {
			return errors.Wrap(err, "soptest: encrypting with password")
		}
	} else {
		recipients, err := b.readKeys(fs.Args())
		if err != nil {
			return err
		}
		signer, err := b.signer(*signWith, *keyPasswords)
		if err != nil {
			return err
		}
		if plaintext, err = openpgp.Encrypt(&out, recipients, signer, hints, config); err != nil {
			return sop.WrapError(sop.KindCertCannotEncrypt, err, "cannot encrypt to the given certificates")
		}
	}
	if _, err := io.Copy(plaintext, b.stdin); err != nil {
		return errors.Wrap(err, "soptest: reading plaintext")
	}
	if err := plaintext.Close(); err != nil {
		return errors.Wrap(err, "soptest: finishing message")
	}
	return b.emit(out.Bytes(), constants.PGPMessageHeader, *noArmor)
}

// signer reads and unlocks the single key of --sign-with, if any.
func (b *backend) signer(raws, keyPasswords []string) (*openpgp.Entity, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	if len(raws) > 1 {
		return nil, sop.NewError(sop.KindUnsupportedOption, "only one signing key is supported")
	}
	keys, err := b.readKeys(raws)
	if err != nil {
		return nil, err
	}
	if len(keys) != 1 || keys[0].PrivateKey == nil {
		return nil, sop.NewError(sop.KindKeyCannotSign, "--sign-with needs exactly one secret key")
	}
	passwords, err := b.secrets(keyPasswords)
	if err != nil {
		return nil, err
	}
	if err := unlock(keys[0], passwords); err != nil {
		return nil, err
	}
	return keys[0], nil
}

func (b *backend) decrypt(args []string) error {
	fs := newFlagSet("decrypt")
	_ = fs.String("session-key-out", "", "")
	withSessionKeys := fs.StringArray("with-session-key", nil, "")
	withPasswords := fs.StringArray("with-password", nil, "")
	verifyOut := fs.String("verify-out", "", "")
	verifyWith := fs.StringArray("verify-with", nil, "")
	notBefore := fs.String("verify-not-before", constants.TimeUnspecified, "")
	notAfter := fs.String("verify-not-after", constants.TimeNow, "")
	keyPasswords := fs.StringArray("with-key-password", nil, "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if len(*withSessionKeys) > 0 {
		return sop.NewError(sop.KindUnsupportedOption, "--with-session-key is not supported")
	}
	if fs.NArg() == 0 && len(*withPasswords) == 0 {
		return sop.NewError(sop.KindMissingArg, "decrypt needs keys or a password")
	}
	if len(*verifyWith) > 0 && *verifyOut == "" {
		return sop.NewError(sop.KindIncompleteVerification, "--verify-with requires --verify-out")
	}
	window, err := b.window(*notBefore, *notAfter)
	if err != nil {
		return err
	}
	keys, err := b.readKeys(fs.Args())
	if err != nil {
		return err
	}
	certs, err := b.readKeys(*verifyWith)
	if err != nil {
		return err
	}
	passwords, err := b.secrets(*withPasswords)
	if err != nil {
		return err
	}
	unlockPasswords, err := b.secrets(*keyPasswords)
	if err != nil {
		return err
	}

	prompted := false
	prompt := func(candidates []openpgp.Key, symmetric bool) ([]byte, error) {
		if prompted {
			return nil, pgpErrors.ErrKeyIncorrect
		}
		prompted = true
		locked := false
		for _, k := range candidates {
			if k.PrivateKey == nil || !k.PrivateKey.Encrypted {
				continue
			}
			for _, password := range unlockPasswords {
				if k.PrivateKey.Decrypt(password) == nil {
					break
				}
			}
			locked = locked || k.PrivateKey.Encrypted
		}
		if symmetric && len(passwords) > 0 {
			return passwords[0], nil
		}
		if locked {
			return nil, sop.NewError(sop.KindKeyIsProtected, "cannot unlock decryption key")
		}
		return nil, nil
	}

	in, err := armor.NewReader(b.stdin)
	if err != nil {
		return err
	}
	keyring := append(append(openpgp.EntityList{}, keys...), certs...)
	md, err := openpgp.ReadMessage(in, keyring, prompt, nil)
	if err != nil {
		var sopErr *sop.Error
		if errors.As(err, &sopErr) {
			return sopErr
		}
		return sop.WrapError(sop.KindCannotDecrypt, err, "")
	}
	var plaintext bytes.Buffer
	if _, err := plaintext.ReadFrom(md.UnverifiedBody); err != nil {
		return sop.WrapError(sop.KindCannotDecrypt, err, "")
	}

	if *verifyOut != "" {
		var lines bytes.Buffer
		if md.IsSigned && md.SignatureError == nil && md.SignedBy != nil && md.Signature != nil &&
			window.contains(md.Signature.CreationTime) && contains(certs, md.SignedBy.Entity) {
			v := newVerification(md.Signature, md.SignedBy.Entity)
			lines.WriteString(v.String() + "\n")
		}
		if err := b.writeOutput(*verifyOut, lines.Bytes()); err != nil {
			return err
		}
	}
	_, err = b.stdout.Write(plaintext.Bytes())
	return errors.Wrap(err, "soptest: writing plaintext")
}

func contains(certs openpgp.EntityList, e *openpgp.Entity) bool {
	for _, cert := range certs {
		if bytes.Equal(cert.PrimaryKey.Fingerprint, e.PrimaryKey.Fingerprint) {
			return true
		}
	}
	return false
}
