package sop

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ProtonMail/sop-external/constants"
)

// SignatureMode is the optional mode token of a verification line.
type SignatureMode string

const (
	ModeUnspecified SignatureMode = ""
	ModeBinary      SignatureMode = constants.SignAsBinary
	ModeText        SignatureMode = constants.SignAsText
)

// ParseSignatureMode parses "binary" or "text".
func ParseSignatureMode(s string) (SignatureMode, error) {
	switch SignatureMode(s) {
	case ModeBinary, ModeText:
		return SignatureMode(s), nil
	}
	return ModeUnspecified, NewError(KindBadData, "unknown signature mode "+s)
}

// Verification describes one accepted signature.
type Verification struct {
	// CreationTime is in UTC with second precision.
	CreationTime           time.Time
	SigningKeyFingerprint  string
	SigningCertFingerprint string
	Mode                   SignatureMode
	// Description is free text or a JSON object, empty when absent.
	Description string
}

// NewVerification creates a verification record, normalizing the creation
// time to UTC seconds and trimming the description. A description starting
// with "mode:" is only representable when mode is set, see Validate.
func NewVerification(
	creationTime time.Time,
	signingKeyFingerprint, signingCertFingerprint string,
	mode SignatureMode,
	description string,
) Verification {
	return Verification{
		CreationTime:           creationTime.UTC().Truncate(time.Second),
		SigningKeyFingerprint:  signingKeyFingerprint,
		SigningCertFingerprint: signingCertFingerprint,
		Mode:                   mode,
		Description:            strings.TrimSpace(description),
	}
}

// Validate reports records that would not survive a format and parse
// round trip: without a mode, a description starting with "mode:" is read
// back as the mode token.
func (v Verification) Validate() error {
	if v.Mode == ModeUnspecified && strings.HasPrefix(v.Description, constants.ModePrefix) {
		return NewError(KindBadData, "description "+strconv.Quote(v.Description)+" needs an explicit mode")
	}
	return nil
}

// String formats the record as a single verification line.
// Absent optional fields are omitted.
func (v Verification) String() string {
	var b strings.Builder
	b.WriteString(FormatUTC(v.CreationTime))
	b.WriteByte(' ')
	b.WriteString(v.SigningKeyFingerprint)
	b.WriteByte(' ')
	b.WriteString(v.SigningCertFingerprint)
	if v.Mode != ModeUnspecified {
		b.WriteString(" " + constants.ModePrefix)
		b.WriteString(string(v.Mode))
	}
	if v.Description != "" {
		b.WriteByte(' ')
		b.WriteString(v.Description)
	}
	return b.String()
}

// ParseVerification parses one verification line. Fingerprints are kept
// byte for byte.
func ParseVerification(line string) (Verification, error) {
	rest := strings.TrimSpace(line)
	var fields [3]string
	for i := range fields {
		fields[i], rest = nextField(rest)
		if fields[i] == "" {
			return Verification{}, NewError(
				KindBadData,
				"verification must be of the form 'UTC-DATE FINGERPRINT FINGERPRINT [mode:MODE] [DESCRIPTION]'",
			)
		}
	}
	creation, err := ParseUTC(fields[0])
	if err != nil {
		return Verification{}, err
	}
	v := Verification{
		CreationTime:           creation,
		SigningKeyFingerprint:  fields[1],
		SigningCertFingerprint: fields[2],
	}
	if token, after := nextField(rest); strings.HasPrefix(token, constants.ModePrefix) {
		if v.Mode, err = ParseSignatureMode(strings.TrimPrefix(token, constants.ModePrefix)); err != nil {
			return Verification{}, err
		}
		rest = after
	}
	v.Description = strings.TrimSpace(rest)
	return v, nil
}

// ParseVerifications parses every non-blank line of out.
func ParseVerifications(out string) ([]Verification, error) {
	var verifications []Verification
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		v, err := ParseVerification(line)
		if err != nil {
			return nil, err
		}
		verifications = append(verifications, v)
	}
	return verifications, nil
}

func nextField(s string) (field, rest string) {
	s = strings.TrimLeft(s, " \t")
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], s[i:]
	}
	return s, ""
}

// SignedBy reports whether the signing key or the signing certificate
// matches fingerprint, ignoring case.
func (v Verification) SignedBy(fingerprint string) bool {
	fp := NormalizeFingerprint(fingerprint)
	return fp != "" &&
		(NormalizeFingerprint(v.SigningKeyFingerprint) == fp ||
			NormalizeFingerprint(v.SigningCertFingerprint) == fp)
}

// NormalizeFingerprint canonicalizes a hex fingerprint to uppercase without
// separators.
func NormalizeFingerprint(fingerprint string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", ":", "").Replace(fingerprint))
}

// VerificationJSON is the structured form a description may take.
type VerificationJSON struct {
	Signers []string        `json:"signers"`
	Comment string          `json:"comment,omitempty"`
	Ext     json.RawMessage `json:"ext,omitempty"`
}

// ContainsJSON reports whether the description looks like a JSON object.
func (v Verification) ContainsJSON() bool {
	d := strings.TrimSpace(v.Description)
	return strings.HasPrefix(d, "{") && strings.HasSuffix(d, "}")
}

// JSON parses the description as a VerificationJSON object.
func (v Verification) JSON() (*VerificationJSON, error) {
	if !v.ContainsJSON() {
		return nil, NewError(KindBadData, "description is not a JSON object")
	}
	var out VerificationJSON
	if err := json.Unmarshal([]byte(v.Description), &out); err != nil {
		return nil, WrapError(KindBadData, errors.Wrap(err, "sop: unable to parse verification json"), "")
	}
	return &out, nil
}

// NewVerificationWithJSON creates a record whose description is the
// single line serialization of ext.
func NewVerificationWithJSON(
	creationTime time.Time,
	signingKeyFingerprint, signingCertFingerprint string,
	mode SignatureMode,
	ext VerificationJSON,
) (Verification, error) {
	if ext.Signers == nil {
		ext.Signers = []string{}
	}
	data, err := json.Marshal(ext)
	if err != nil {
		return Verification{}, errors.Wrap(err, "sop: unable to serialize verification json")
	}
	return NewVerification(creationTime, signingKeyFingerprint, signingCertFingerprint, mode, string(data)), nil
}
