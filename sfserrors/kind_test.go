package sfserrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SebastianPilarski/sfs/sfserrors"
)

func TestNew_ErrorString(t *testing.T) {
	err := sfserrors.New(sfserrors.NotFound)
	assert.Equal(t, "no such file", err.Error())
	assert.Equal(t, sfserrors.NotFound, err.Kind())
}

func TestWithMessage_IncludesKind(t *testing.T) {
	err := sfserrors.NotFound.WithMessage("foo.txt")
	assert.Contains(t, err.Error(), "no such file")
	assert.Contains(t, err.Error(), "foo.txt")
	assert.Equal(t, sfserrors.NotFound, err.Kind())
}

func TestWrapError_PreservesCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := sfserrors.IoFailure.WrapError(cause)
	assert.Contains(t, err.Error(), "disk on fire")
	require.ErrorIs(t, err, cause)
}

func TestKind_IsMatchesDriverError(t *testing.T) {
	err := sfserrors.New(sfserrors.DirectoryFull)
	assert.True(t, errors.Is(err, sfserrors.DirectoryFull))
	assert.False(t, errors.Is(err, sfserrors.NotFound))
}
