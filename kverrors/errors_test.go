package kverrors_test

import (
	"errors"
	"testing"

	"github.com/squareup/kvclient/kverrors"
	"github.com/stretchr/testify/require"
)

func TestNewWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := kverrors.New(kverrors.KindRegion, cause)
	require.Error(t, err)
	require.Equal(t, "region: boom", err.Error())
	require.True(t, kverrors.Is(err, kverrors.KindRegion))
	require.False(t, kverrors.Is(err, kverrors.KindResolveLock))
}

func TestResolveLockErrorKind(t *testing.T) {
	err := kverrors.ResolveLockError(nil)
	require.Equal(t, kverrors.KindResolveLock, err.Kind)
	require.True(t, kverrors.Is(err, kverrors.KindResolveLock))
}

func TestErrorfFormats(t *testing.T) {
	err := kverrors.Errorf(kverrors.KindShardResolution, "cannot resolve key %q", "foo")
	require.Contains(t, err.Error(), "cannot resolve key \"foo\"")
}
