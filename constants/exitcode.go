package constants

// Exit codes of the stateless OpenPGP contract.
// The numbers are a stable external interface and must never change.
const (
	ExitSuccess                   = 0
	ExitNoSignature               = 3
	ExitUnsupportedAsymmetricAlgo = 13
	ExitCertCannotEncrypt         = 17
	ExitMissingArg                = 19
	ExitIncompleteVerification    = 23
	ExitCannotDecrypt             = 29
	ExitPasswordNotHumanReadable  = 31
	ExitUnsupportedOption         = 37
	ExitBadData                   = 41
	ExitExpectedText              = 53
	ExitOutputExists              = 59
	ExitMissingInput              = 61
	ExitKeyIsProtected            = 67
	ExitUnsupportedSubcommand     = 69
	ExitUnsupportedSpecialPrefix  = 71
	ExitAmbiguousInput            = 73
	ExitKeyCannotSign             = 79
	ExitIncompatibleOptions       = 83
	ExitUnsupportedProfile        = 89
	ExitNoHardwareKeyFound        = 97
	ExitHardwareKeyFailure        = 101
	ExitPrimaryKeyBad             = 103
	ExitCertUserIDNoMatch         = 107
)

// ExitGeneric is used by front-ends for failures that have no exit code of
// their own, such as a backend that could not be started.
const ExitGeneric = 1
