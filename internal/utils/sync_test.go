package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionalRWMutex(t *testing.T) {
	var mutex OptionalRWMutex

	mutex.Lock()
	require.False(t, mutex.TryLock())
	mutex.Unlock()

	mutex.RLock()
	require.False(t, mutex.TryLock())
	mutex.RUnlock()

	require.True(t, mutex.TryLock())
	mutex.Unlock()
}

func TestDisabledOptionalRWMutex(t *testing.T) {
	mutex := OptionalRWMutex{Disabled: true}

	mutex.Lock()
	require.True(t, mutex.TryLock())
	mutex.RLock()
	mutex.RUnlock()
	mutex.Unlock()
}
