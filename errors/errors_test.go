package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrValidation, "publication_year has wrong type")
	assert.True(t, Is(err, ErrValidation))
	assert.False(t, Is(err, ErrFetch))

	// Further wrapping keeps the sentinel reachable
	outer := Wrapf(err, "record %d", 7)
	assert.True(t, IsValidationError(outer))
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("missing setting %q", "OPENALEX_EMAIL")
	require.NotNil(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "OPENALEX_EMAIL")
}

func TestIsHelpersNilSafe(t *testing.T) {
	assert.False(t, IsConfigError(nil))
	assert.False(t, IsValidationError(nil))
	assert.False(t, IsFetchError(nil))
}

func TestIsWithStdlibWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrFetch)
	assert.True(t, IsFetchError(err))
}

func TestGetStack(t *testing.T) {
	err := New("with stack")
	assert.NotNil(t, GetStack(err))
}
