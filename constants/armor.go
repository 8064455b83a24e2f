// Package constants provides the wire-level strings and numbers of the
// stateless OpenPGP command line contract.
package constants

// Armor block types.
const (
	PGPMessageHeader   = "PGP MESSAGE"
	PGPSignatureHeader = "PGP SIGNATURE"
	PublicKeyHeader    = "PGP PUBLIC KEY BLOCK"
	PrivateKeyHeader   = "PGP PRIVATE KEY BLOCK"
)

// Armor labels accepted by `armor --label`.
const (
	ArmorLabelAuto    = "auto"
	ArmorLabelSig     = "sig"
	ArmorLabelKey     = "key"
	ArmorLabelCert    = "cert"
	ArmorLabelMessage = "message"
)
