package constants

// Subcommand names.
const (
	SubcommandVersion           = "version"
	SubcommandListProfiles      = "list-profiles"
	SubcommandGenerateKey       = "generate-key"
	SubcommandExtractCert       = "extract-cert"
	SubcommandChangeKeyPassword = "change-key-password"
	SubcommandRevokeKey         = "revoke-key"
	SubcommandUpdateKey         = "update-key"
	SubcommandMergeCerts        = "merge-certs"
	SubcommandCertifyUserID     = "certify-userid"
	SubcommandValidateUserID    = "validate-userid"
	SubcommandSign              = "sign"
	SubcommandVerify            = "verify"
	SubcommandInlineSign        = "inline-sign"
	SubcommandInlineVerify      = "inline-verify"
	SubcommandInlineDetach      = "inline-detach"
	SubcommandEncrypt           = "encrypt"
	SubcommandDecrypt           = "decrypt"
	SubcommandArmor             = "armor"
	SubcommandDearmor           = "dearmor"
)

// Special designator prefixes for indirect parameters.
const (
	DesignatorSentinel = "@"
	DesignatorEnv      = "@ENV:"
	DesignatorFD       = "@FD:"
	DesignatorStdio    = "-"
)

// Reserved time arguments of --not-before/--not-after.
const (
	TimeNow         = "now"
	TimeUnspecified = "-"
)
