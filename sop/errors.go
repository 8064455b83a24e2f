// Package sop holds the value types and the error taxonomy shared by every
// part of the stateless OpenPGP adapter.
package sop

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/ProtonMail/sop-external/constants"
)

// Kind is the semantic meaning of a backend exit code.
// The numeric value of a classified kind is its exit code.
type Kind int

// KindUnclassified marks a non-zero exit code outside the known table.
const KindUnclassified Kind = -1

const (
	KindNoSignature               Kind = constants.ExitNoSignature
	KindUnsupportedAsymmetricAlgo Kind = constants.ExitUnsupportedAsymmetricAlgo
	KindCertCannotEncrypt         Kind = constants.ExitCertCannotEncrypt
	KindMissingArg                Kind = constants.ExitMissingArg
	KindIncompleteVerification    Kind = constants.ExitIncompleteVerification
	KindCannotDecrypt             Kind = constants.ExitCannotDecrypt
	KindPasswordNotHumanReadable  Kind = constants.ExitPasswordNotHumanReadable
	KindUnsupportedOption         Kind = constants.ExitUnsupportedOption
	KindBadData                   Kind = constants.ExitBadData
	KindExpectedText              Kind = constants.ExitExpectedText
	KindOutputExists              Kind = constants.ExitOutputExists
	KindMissingInput              Kind = constants.ExitMissingInput
	KindKeyIsProtected            Kind = constants.ExitKeyIsProtected
	KindUnsupportedSubcommand     Kind = constants.ExitUnsupportedSubcommand
	KindUnsupportedSpecialPrefix  Kind = constants.ExitUnsupportedSpecialPrefix
	KindAmbiguousInput            Kind = constants.ExitAmbiguousInput
	KindKeyCannotSign             Kind = constants.ExitKeyCannotSign
	KindIncompatibleOptions       Kind = constants.ExitIncompatibleOptions
	KindUnsupportedProfile        Kind = constants.ExitUnsupportedProfile
	KindNoHardwareKeyFound        Kind = constants.ExitNoHardwareKeyFound
	KindHardwareKeyFailure        Kind = constants.ExitHardwareKeyFailure
	KindPrimaryKeyBad             Kind = constants.ExitPrimaryKeyBad
	KindCertUserIDNoMatch         Kind = constants.ExitCertUserIDNoMatch
)

// Category groups kinds for programmatic handling. It does not change the
// numeric exit codes.
type Category int

const (
	// CategoryUnknown is the category of unclassified exit codes.
	CategoryUnknown Category = iota
	// CategoryInput covers verdicts about the caller's input or arguments.
	CategoryInput
	// CategoryUnsupported covers limitations of the backend.
	CategoryUnsupported
)

func (c Category) String() string {
	switch c {
	case CategoryInput:
		return "input"
	case CategoryUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

type kindInfo struct {
	name     string
	category Category
}

var kinds = map[Kind]kindInfo{
	KindNoSignature:               {"NoSignature", CategoryInput},
	KindUnsupportedAsymmetricAlgo: {"UnsupportedAsymmetricAlgo", CategoryUnsupported},
	KindCertCannotEncrypt:         {"CertCannotEncrypt", CategoryInput},
	KindMissingArg:                {"MissingArg", CategoryInput},
	KindIncompleteVerification:    {"IncompleteVerification", CategoryInput},
	KindCannotDecrypt:             {"CannotDecrypt", CategoryInput},
	KindPasswordNotHumanReadable:  {"PasswordNotHumanReadable", CategoryInput},
	KindUnsupportedOption:         {"UnsupportedOption", CategoryUnsupported},
	KindBadData:                   {"BadData", CategoryInput},
	KindExpectedText:              {"ExpectedText", CategoryInput},
	KindOutputExists:              {"OutputExists", CategoryInput},
	KindMissingInput:              {"MissingInput", CategoryInput},
	KindKeyIsProtected:            {"KeyIsProtected", CategoryInput},
	KindUnsupportedSubcommand:     {"UnsupportedSubcommand", CategoryUnsupported},
	KindUnsupportedSpecialPrefix:  {"UnsupportedSpecialPrefix", CategoryUnsupported},
	KindAmbiguousInput:            {"AmbiguousInput", CategoryInput},
	KindKeyCannotSign:             {"KeyCannotSign", CategoryInput},
	KindIncompatibleOptions:       {"IncompatibleOptions", CategoryInput},
	KindUnsupportedProfile:        {"UnsupportedProfile", CategoryUnsupported},
	KindNoHardwareKeyFound:        {"NoHardwareKeyFound", CategoryInput},
	KindHardwareKeyFailure:        {"HardwareKeyFailure", CategoryInput},
	KindPrimaryKeyBad:             {"PrimaryKeyBad", CategoryInput},
	KindCertUserIDNoMatch:         {"CertUserIdNoMatch", CategoryInput},
}

// Kinds returns every classified kind in ascending exit code order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for code := 0; code <= constants.ExitCertUserIDNoMatch; code++ {
		if _, ok := kinds[Kind(code)]; ok {
			out = append(out, Kind(code))
		}
	}
	return out
}

// KindOf returns the kind of an exit code, or KindUnclassified.
func KindOf(code int) Kind {
	if _, ok := kinds[Kind(code)]; ok {
		return Kind(code)
	}
	return KindUnclassified
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "Unclassified"
}

// ExitCode returns the exit code of a classified kind, -1 otherwise.
func (k Kind) ExitCode() int {
	if _, ok := kinds[k]; ok {
		return int(k)
	}
	return -1
}

// Category returns the secondary classification of the kind.
func (k Kind) Category() Category {
	if info, ok := kinds[k]; ok {
		return info.category
	}
	return CategoryUnknown
}

// Error is a classified failure reported by a backend or raised locally
// with the same meaning.
type Error struct {
	Kind     Kind
	ExitCode int
	// Message is the backend's diagnostic output or a local explanation.
	Message string
	Cause   error
}

// NewError creates an error of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, ExitCode: kind.ExitCode(), Message: message}
}

// WrapError creates an error of the given kind caused by err.
func WrapError(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, ExitCode: kind.ExitCode(), Message: message, Cause: err}
}

// Error is the base method for all errors.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("sop: ")
	b.WriteString(e.Kind.String())
	if e.Kind == KindUnclassified {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind. Unclassified errors only match
// when the exit codes agree as well.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind == KindUnclassified || t.Kind == KindUnclassified {
		return e.Kind == t.Kind && e.ExitCode == t.ExitCode
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is.
var (
	ErrNoSignature               = NewError(KindNoSignature, "")
	ErrUnsupportedAsymmetricAlgo = NewError(KindUnsupportedAsymmetricAlgo, "")
	ErrCertCannotEncrypt         = NewError(KindCertCannotEncrypt, "")
	ErrMissingArg                = NewError(KindMissingArg, "")
	ErrIncompleteVerification    = NewError(KindIncompleteVerification, "")
	ErrCannotDecrypt             = NewError(KindCannotDecrypt, "")
	ErrPasswordNotHumanReadable  = NewError(KindPasswordNotHumanReadable, "")
	ErrUnsupportedOption         = NewError(KindUnsupportedOption, "")
	ErrBadData                   = NewError(KindBadData, "")
	ErrExpectedText              = NewError(KindExpectedText, "")
	ErrOutputExists              = NewError(KindOutputExists, "")
	ErrMissingInput              = NewError(KindMissingInput, "")
	ErrKeyIsProtected            = NewError(KindKeyIsProtected, "")
	ErrUnsupportedSubcommand     = NewError(KindUnsupportedSubcommand, "")
	ErrUnsupportedSpecialPrefix  = NewError(KindUnsupportedSpecialPrefix, "")
	ErrAmbiguousInput            = NewError(KindAmbiguousInput, "")
	ErrKeyCannotSign             = NewError(KindKeyCannotSign, "")
	ErrIncompatibleOptions       = NewError(KindIncompatibleOptions, "")
	ErrUnsupportedProfile        = NewError(KindUnsupportedProfile, "")
	ErrNoHardwareKeyFound        = NewError(KindNoHardwareKeyFound, "")
	ErrHardwareKeyFailure        = NewError(KindHardwareKeyFailure, "")
	ErrPrimaryKeyBad             = NewError(KindPrimaryKeyBad, "")
	ErrCertUserIDNoMatch         = NewError(KindCertUserIDNoMatch, "")
)

// TransportError reports that the backend could not be driven at all:
// spawning it failed, a pipe broke, or the caller's source or sink failed.
// It never carries an exit code.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "sop: " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Classify maps the exit code of a finished backend to an error carrying
// the backend's diagnostic output. Exit code 0 is success and returns nil.
func Classify(code int, stderr string) error {
	if code == constants.ExitSuccess {
		return nil
	}
	kind := KindOf(code)
	return &Error{
		Kind:     kind,
		ExitCode: code,
		Message:  strings.TrimSpace(stderr),
	}
}

// ExitCode returns the process exit code a front-end should use for err.
func ExitCode(err error) int {
	if err == nil {
		return constants.ExitSuccess
	}
	var sopErr *Error
	if errors.As(err, &sopErr) && sopErr.ExitCode > 0 {
		return sopErr.ExitCode
	}
	return constants.ExitGeneric
}

// KindOfError returns the kind of err, or KindUnclassified when err is not
// a classified error.
func KindOfError(err error) Kind {
	var sopErr *Error
	if errors.As(err, &sopErr) {
		return sopErr.Kind
	}
	return KindUnclassified
}
