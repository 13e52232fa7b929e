package utils

import (
	"sync"
)

// OptionalRWMutex is a sync.RWMutex that can be switched off. Objects created with an
// externally synchronized flag set Disabled, and their callers take over responsibility for
// never touching them from two goroutines at once.
type OptionalRWMutex struct {
	mutex    sync.RWMutex
	Disabled bool
}

func (m *OptionalRWMutex) Lock() {
	if !m.Disabled {
		m.mutex.Lock()
	}
}

func (m *OptionalRWMutex) Unlock() {
	if !m.Disabled {
		m.mutex.Unlock()
	}
}

func (m *OptionalRWMutex) RLock() {
	if !m.Disabled {
		m.mutex.RLock()
	}
}

func (m *OptionalRWMutex) RUnlock() {
	if !m.Disabled {
		m.mutex.RUnlock()
	}
}

// TryLock acquires the write lock if it is free. A disabled mutex always succeeds.
func (m *OptionalRWMutex) TryLock() bool {
	if m.Disabled {
		return true
	}
	return m.mutex.TryLock()
}
