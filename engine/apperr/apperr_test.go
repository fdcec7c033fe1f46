package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errExampleFull = New(CapacityExceeded, "example: full")

func TestKindOfFindsWrappedSentinel(t *testing.T) {
	wrapped := fmt.Errorf("op %d: %w", 7, errExampleFull)
	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, CapacityExceeded, kind)
}

func TestKindOfFalseForPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("not categorized"))
	assert.False(t, ok)
}

func TestErrorsIsMatchesThroughWrap(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", errExampleFull)
	assert.ErrorIs(t, wrapped, errExampleFull)
}

func TestStringNamesEveryKind(t *testing.T) {
	for _, k := range []ErrorKind{CapacityExceeded, IndexOutOfRange, AlreadyPresent, NotPresent, SegmentUnavailable, IntrospectionTimeout, PushTimeout} {
		assert.NotEqual(t, "unknown", k.String())
	}
	assert.Equal(t, "unknown", Unknown.String())
}
