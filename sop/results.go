package sop

// SigningResult is returned by a detached sign operation.
type SigningResult struct {
	// MicAlg is the hash algorithm name for a PGP/MIME micalg parameter,
	// empty if the backend did not report one.
	MicAlg string
}

// EncryptionResult is returned by an encrypt operation.
type EncryptionResult struct {
	SessionKey *SessionKey
}

// DecryptionResult is returned by a decrypt operation.
type DecryptionResult struct {
	SessionKey    *SessionKey
	Verifications []Verification
}

// InlineVerificationResult is returned by inline-verify.
type InlineVerificationResult struct {
	Verifications []Verification
}
