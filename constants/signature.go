package constants

// Signature modes as they appear in `--as=` and in the `mode:` token of a
// verification line.
const (
	SignAsBinary = "binary"
	SignAsText   = "text"
)

// InlineSignAsClearSigned is the extra mode of `inline-sign --as=`.
const InlineSignAsClearSigned = "clearsigned"

// Encryption modes and purposes for `encrypt --as=` and `encrypt --for=`.
const (
	EncryptAsBinary = "binary"
	EncryptAsText   = "text"

	EncryptForStorage        = "storage"
	EncryptForCommunications = "communications"
	EncryptForAny            = "any"
)

// ModePrefix introduces the signature mode token of a verification line.
const ModePrefix = "mode:"
