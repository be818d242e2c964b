package capi

import (
	"sync"
)

// Result is the status returned by fallible calls.
type Result uint32

const (
	OK    Result = 1
	ERROR Result = 2
)

func (r Result) String() string {
	switch r {
	case OK:
		return "ok"
	case ERROR:
		return "error"
	default:
		return "unknown"
	}
}

var lastError struct {
	mu  sync.Mutex
	msg string
	set bool
}

// setLastError records err as the last error and returns ERROR.
func setLastError(err error) Result {
	lastError.mu.Lock()
	lastError.msg = err.Error()
	lastError.set = true
	lastError.mu.Unlock()
	return ERROR
}

// LastError returns the last error message and whether one is set.
func LastError() (string, bool) {
	lastError.mu.Lock()
	defer lastError.mu.Unlock()
	return lastError.msg, lastError.set
}

// LastErrorLength returns the size of the buffer LastErrorMessage needs:
// the message length in bytes plus the terminating NUL. It returns 0 when
// no error is set.
func LastErrorLength() int {
	lastError.mu.Lock()
	defer lastError.mu.Unlock()
	if !lastError.set {
		return 0
	}
	return len(lastError.msg) + 1
}

// LastErrorMessage copies the NUL-terminated last error message into buf
// and returns the number of bytes written, NUL included. It returns -1 when
// no error is set or buf is too small.
func LastErrorMessage(buf []byte) int {
	lastError.mu.Lock()
	defer lastError.mu.Unlock()
	if !lastError.set || len(buf) < len(lastError.msg)+1 {
		return -1
	}
	n := copy(buf, lastError.msg)
	buf[n] = 0
	return n + 1
}

// ClearLastError empties the last error slot.
func ClearLastError() {
	lastError.mu.Lock()
	lastError.msg = ""
	lastError.set = false
	lastError.mu.Unlock()
}
