package soptest

import (
	"bytes"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/pkg/errors"

	"github.com/ProtonMail/sop-external/armor"
	"github.com/ProtonMail/sop-external/constants"
	"github.com/ProtonMail/sop-external/profile"
	"github.com/ProtonMail/sop-external/sop"
)

func (b *backend) generateKey(args []string) error {
	fs := newFlagSet("generate-key")
	noArmor := fs.Bool("no-armor", false, "")
	profileName := fs.String("profile", "", "")
	signingOnly := fs.Bool("signing-only", false, "")
	keyPassword := fs.String("with-key-password", "", "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}
	preset, ok := profile.Lookup(constants.SubcommandGenerateKey, *profileName)
	if !ok {
		return sop.NewError(sop.KindUnsupportedProfile, "unknown profile "+*profileName)
	}

	var password []byte
	if *keyPassword != "" {
		passwords, err := b.secrets([]string{*keyPassword})
		if err != nil {
			return err
		}
		password = passwords[0]
	}

	cfg := preset.KeyGenerationConfig()
	cfg.Time = b.now
	name, email := splitUserID(fs.Arg(0))
	entity, err := openpgp.NewEntity(name, "", email, cfg)
	if err != nil {
		return sop.WrapError(sop.KindBadData, err, "cannot generate key")
	}
	for _, uid := range fs.Args()[1:] {
		name, email := splitUserID(uid)
		if err := entity.AddUserId(name, "", email, cfg); err != nil {
			return sop.WrapError(sop.KindBadData, err, "cannot add user id "+uid)
		}
	}
	if *signingOnly {
		entity.Subkeys = nil
	}
	if password != nil {
		if err := lock(entity, password); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := entity.SerializePrivateWithoutSigning(&buf, nil); err != nil {
		return errors.Wrap(err, "soptest: serializing key")
	}
	return b.emit(buf.Bytes(), constants.PrivateKeyHeader, *noArmor)
}

func (b *backend) extractCert(args []string) error {
	fs := newFlagSet("extract-cert")
	noArmor := fs.Bool("no-armor", false, "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	entities, err := readKeyRing(b.stdin)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, e := range entities {
		if err := e.Serialize(&buf); err != nil {
			return errors.Wrap(err, "soptest: serializing certificate")
		}
	}
	return b.emit(buf.Bytes(), constants.PublicKeyHeader, *noArmor)
}

// emit writes data to standard output, armored unless noArmor is set.
func (b *backend) emit(data []byte, blockType string, noArmor bool) error {
	if !noArmor {
		armored, err := armor.ArmorWithType(data, blockType)
		if err != nil {
			return err
		}
		data = armored
	}
	_, err := b.stdout.Write(data)
	return errors.Wrap(err, "soptest: writing output")
}

// splitUserID splits "Name <email>" into its parts. A user id without
// angle brackets is used as the name.
func splitUserID(uid string) (name, email string) {
	lt, gt := strings.LastIndex(uid, "<"), strings.LastIndex(uid, ">")
	if lt < 0 || gt < lt {
		return strings.TrimSpace(uid), ""
	}
	return strings.TrimSpace(uid[:lt]), strings.TrimSpace(uid[lt+1 : gt])
}

func readKeyRing(r io.Reader) (openpgp.EntityList, error) {
	binary, err := armor.NewReader(r)
	if err != nil {
		return nil, err
	}
	entities, err := openpgp.ReadKeyRing(binary)
	if err != nil {
		return nil, sop.WrapError(sop.KindBadData, err, "cannot read keys")
	}
	return entities, nil
}

// readKeys reads every designated key or certificate into one key ring.
func (b *backend) readKeys(raws []string) (openpgp.EntityList, error) {
	var all openpgp.EntityList
	for _, raw := range raws {
		in, err := b.resolver.Input(raw)
		if err != nil {
			return nil, err
		}
		entities, err := readKeyRing(in)
		_ = in.Close()
		if err != nil {
			return nil, err
		}
		all = append(all, entities...)
	}
	return all, nil
}

func privateKeys(e *openpgp.Entity) []*packet.PrivateKey {
	keys := []*packet.PrivateKey{e.PrivateKey}
	for _, sub := range e.Subkeys {
		keys = append(keys, sub.PrivateKey)
	}
	return keys
}

func lock(e *openpgp.Entity, password []byte) error {
	for _, key := range privateKeys(e) {
		if key != nil && !key.Encrypted {
			if err := key.Encrypt(password); err != nil {
				return errors.Wrap(err, "soptest: encrypting key")
			}
		}
	}
	return nil
}

// unlock decrypts every locked secret key of e with the first password
// that works. A key that stays locked yields KeyIsProtected.
func unlock(e *openpgp.Entity, passwords [][]byte) error {
	for _, key := range privateKeys(e) {
		if key == nil || !key.Encrypted {
			continue
		}
		for _, password := range passwords {
			if key.Decrypt(password) == nil {
				break
			}
		}
		if key.Encrypted {
			return sop.NewError(sop.KindKeyIsProtected, "cannot unlock key "+fingerprint(e.PrimaryKey.Fingerprint))
		}
	}
	return nil
}
