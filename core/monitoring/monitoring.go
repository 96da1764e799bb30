// Package monitoring reports unexpected failures to an external error
// tracker. The package keeps a process-wide Monitor; it is a no-op until Init
// installs one.
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. A nil monitor restores the
// no-op one.
func Init(m Monitor) {
	mu.Lock()
	defer mu.Unlock()
	if m == nil {
		m = NopMonitor{}
	}
	current = m
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// Recover reports a panic and re-raises it. It must be deferred directly.
func Recover() {
	if r := recover(); r != nil {
		get().CaptureException(panicError{r}, map[string]string{"panic": "true"})
		panic(r)
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}

type panicError struct{ v any }

func (p panicError) Error() string { return fmt.Sprint("panic: ", p.v) }

// Captured is one exception seen by a MockMonitor.
type Captured struct {
	Err  error
	Tags map[string]string
}

// MockMonitor records captured exceptions for tests.
type MockMonitor struct {
	mu       sync.Mutex
	captured []Captured
}

func (m *MockMonitor) CaptureException(err error, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captured = append(m.captured, Captured{Err: err, Tags: tags})
}

func (m *MockMonitor) Flush(time.Duration) {}

// Captured returns a copy of the recorded exceptions.
func (m *MockMonitor) Captured() []Captured {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Captured, len(m.captured))
	copy(out, m.captured)
	return out
}
