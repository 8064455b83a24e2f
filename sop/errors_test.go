package sop

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exitCodeTable = map[int]Kind{
	3:   KindNoSignature,
	13:  KindUnsupportedAsymmetricAlgo,
	17:  KindCertCannotEncrypt,
	19:  KindMissingArg,
	23:  KindIncompleteVerification,
	29:  KindCannotDecrypt,
	31:  KindPasswordNotHumanReadable,
	37:  KindUnsupportedOption,
	41:  KindBadData,
	53:  KindExpectedText,
	59:  KindOutputExists,
	61:  KindMissingInput,
	67:  KindKeyIsProtected,
	69:  KindUnsupportedSubcommand,
	71:  KindUnsupportedSpecialPrefix,
	73:  KindAmbiguousInput,
	79:  KindKeyCannotSign,
	83:  KindIncompatibleOptions,
	89:  KindUnsupportedProfile,
	97:  KindNoHardwareKeyFound,
	101: KindHardwareKeyFailure,
	103: KindPrimaryKeyBad,
	107: KindCertUserIDNoMatch,
}

func TestClassifySuccess(t *testing.T) {
	assert.NoError(t, Classify(0, "ignored"))
}

func TestClassifyKnownCodes(t *testing.T) {
	require.Len(t, Kinds(), len(exitCodeTable))
	for code, kind := range exitCodeTable {
		err := Classify(code, "")
		var sopErr *Error
		require.True(t, errors.As(err, &sopErr), "exit code %d", code)
		assert.Equal(t, kind, sopErr.Kind)
		assert.Equal(t, code, sopErr.ExitCode)
		assert.Equal(t, code, ExitCode(err))
		assert.NotEqual(t, "Unclassified", kind.String())
	}
}

func TestClassifyUnknownCode(t *testing.T) {
	for _, code := range []int{1, 2, 42, 255} {
		err := Classify(code, "  boom\n")
		var sopErr *Error
		require.True(t, errors.As(err, &sopErr))
		assert.Equal(t, KindUnclassified, sopErr.Kind)
		assert.Equal(t, code, sopErr.ExitCode)
		assert.Equal(t, "boom", sopErr.Message)
		assert.Equal(t, CategoryUnknown, sopErr.Kind.Category())
		assert.Contains(t, err.Error(), "exit code")
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := errors.Wrap(Classify(41, "garbage"), "sop: reading key")
	assert.True(t, errors.Is(err, ErrBadData))
	assert.False(t, errors.Is(err, ErrMissingInput))

	assert.True(t, errors.Is(Classify(42, ""), Classify(42, "")))
	assert.False(t, errors.Is(Classify(42, ""), Classify(43, "")))
}

func TestKindCategory(t *testing.T) {
	assert.Equal(t, CategoryUnsupported, KindUnsupportedSubcommand.Category())
	assert.Equal(t, CategoryUnsupported, KindUnsupportedOption.Category())
	assert.Equal(t, CategoryUnsupported, KindUnsupportedProfile.Category())
	assert.Equal(t, CategoryInput, KindBadData.Category())
	assert.Equal(t, CategoryInput, KindMissingInput.Category())
	assert.Equal(t, "unsupported", CategoryUnsupported.String())
}

func TestExitCodeForTransportError(t *testing.T) {
	err := &TransportError{Op: "spawn", Err: errors.New("no such file")}
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, KindUnclassified, KindOfError(err))
	assert.Equal(t, "sop: spawn: no such file", err.Error())
	assert.Equal(t, 0, ExitCode(nil))
}
