package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	wrapped := fmt.Errorf("module %q: %w", "fluids.core", fmt.Errorf("symbol %q: %w", "g", ErrExecution))
	require.Equal(t, ErrExecution, Kind(wrapped))
	require.Nil(t, Kind(errors.New("plain")))
	require.Nil(t, Kind(nil))
}
