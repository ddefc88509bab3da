// SPDX-License-Identifier: MIT

// Package testsupport holds small test doubles shared across package tests:
// a recording logger and a null-logger helper built on it.
package testsupport

import (
	"fmt"
	"sync"

	"github.com/emassey0135/btspeak-key-interceptor/internal/logger"
)

// MockLogger implements logger.Logger, recording every call for assertions.
type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

// NewMockLogger creates a mock logger with no recorded messages.
func NewMockLogger() *MockLogger {
	return &MockLogger{messages: make([]string, 0)}
}

// NewNullLogger returns a logger.Logger usable anywhere a package under
// test needs one but the test does not care about its output.
func NewNullLogger() logger.Logger {
	return NewMockLogger()
}

func (m *MockLogger) Debug(format string, args ...interface{}) {
	m.mu.Lock()
	m.messages = append(m.messages, fmt.Sprintf("[DEBUG] "+format, args...))
	m.mu.Unlock()
}

func (m *MockLogger) Info(format string, args ...interface{}) {
	m.mu.Lock()
	m.messages = append(m.messages, fmt.Sprintf("[INFO] "+format, args...))
	m.mu.Unlock()
}

func (m *MockLogger) Warning(format string, args ...interface{}) {
	m.mu.Lock()
	m.messages = append(m.messages, fmt.Sprintf("[WARNING] "+format, args...))
	m.mu.Unlock()
}

func (m *MockLogger) Error(format string, args ...interface{}) {
	m.mu.Lock()
	m.messages = append(m.messages, fmt.Sprintf("[ERROR] "+format, args...))
	m.mu.Unlock()
}

// Messages returns every message recorded so far.
func (m *MockLogger) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}
