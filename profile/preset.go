package profile

import (
	"crypto"

	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/ProtonMail/sop-external/constants"
)

// Preset binds an advertised profile to the algorithm parameters a
// go-crypto based backend uses for it.
type Preset struct {
	Profile
	// SetKeyAlgorithm sets the public key algorithm in the config.
	SetKeyAlgorithm func(*packet.Config)
	// Hash defines hash algorithm to be used.
	Hash crypto.Hash
	// CipherEncryption defines the cipher to be used for pgp message encryption.
	CipherEncryption packet.CipherFunction
	// CompressionAlgorithm defines the compression algorithm to be used if any.
	CompressionAlgorithm packet.CompressionAlgo
	// AeadEncryption enables AEAD for pgp message encryption when set.
	AeadEncryption *packet.AEADConfig
}

// KeyGenerationConfig returns the config for `generate-key`.
func (p *Preset) KeyGenerationConfig() *packet.Config {
	cfg := &packet.Config{
		DefaultHash:            p.Hash,
		DefaultCipher:          p.CipherEncryption,
		DefaultCompressionAlgo: p.CompressionAlgorithm,
	}
	p.SetKeyAlgorithm(cfg)
	return cfg
}

// EncryptionConfig returns the config for `encrypt` and `decrypt`.
func (p *Preset) EncryptionConfig() *packet.Config {
	return &packet.Config{
		DefaultHash:   p.Hash,
		DefaultCipher: p.CipherEncryption,
		AEADConfig:    p.AeadEncryption,
	}
}

// SignConfig returns the config for signing operations.
func (p *Preset) SignConfig() *packet.Config {
	return &packet.Config{DefaultHash: p.Hash}
}

// Default returns a preset with widely implemented modern algorithms.
func Default() *Preset {
	return &Preset{
		Profile: Profile{
			Name:        "default",
			Description: "EdDSA and ECDH over Curve25519",
			Aliases:     []string{"compatibility"},
		},
		SetKeyAlgorithm: func(cfg *packet.Config) {
			cfg.Algorithm = packet.PubKeyAlgoEdDSA
			cfg.Curve = packet.Curve25519
		},
		Hash:                 crypto.SHA512,
		CipherEncryption:     packet.CipherAES256,
		CompressionAlgorithm: packet.CompressionZLIB,
	}
}

// RFC4880 returns a preset that conforms with the algorithms in RFC4880.
func RFC4880() *Preset {
	return &Preset{
		Profile: Profile{
			Name:        "rfc4880",
			Description: "RSA 3072 with SHA256 and AES256",
		},
		SetKeyAlgorithm: func(cfg *packet.Config) {
			cfg.Algorithm = packet.PubKeyAlgoRSA
			cfg.RSABits = 3072
		},
		Hash:                 crypto.SHA256,
		CipherEncryption:     packet.CipherAES256,
		CompressionAlgorithm: packet.CompressionZLIB,
	}
}

// Presets returns the presets a subcommand supports, default first.
// Subcommands without profiles return nil.
func Presets(subcommand string) []*Preset {
	switch subcommand {
	case constants.SubcommandGenerateKey:
		return []*Preset{Default(), RFC4880()}
	case constants.SubcommandEncrypt:
		seipd2 := Default()
		seipd2.Profile = Profile{Name: "seipdv2", Description: "AEAD protected messages"}
		seipd2.AeadEncryption = &packet.AEADConfig{DefaultMode: packet.AEADModeOCB}
		rfc4880 := RFC4880()
		rfc4880.Description = "SEIPDv1 protected messages"
		return []*Preset{rfc4880, seipd2}
	}
	return nil
}

// Lookup finds the preset of a subcommand by name or alias. An empty name
// selects the first preset.
func Lookup(subcommand, name string) (*Preset, bool) {
	presets := Presets(subcommand)
	if len(presets) == 0 {
		return nil, false
	}
	if name == "" {
		return presets[0], true
	}
	for _, p := range presets {
		if p.Matches(name) {
			return p, true
		}
	}
	return nil, false
}
