// Package types holds a small set of cross-cutting helpers (currently used
// by package jsonrow): a lightweight error-accumulation log used while
// extracting rows, and a generic slice-mapping helper.
package types

import (
	"sync"
)

// ErrorLog accumulates non-fatal diagnostic errors produced while loading or
// evaluating a single rule invocation. It is not a replacement for a returned
// error on the hard-failure path (see package lldwerr for that); it exists so
// that callers that want to inspect every problem encountered during a load
// (rather than just the first) can do so.
type ErrorLog struct {
	mu     sync.Mutex
	errors []error
}

func (errLog *ErrorLog) LogError(err error) {
	errLog.mu.Lock()
	defer errLog.mu.Unlock()
	errLog.errors = append(errLog.errors, err)
}

func (errLog *ErrorLog) Errors() []error {
	errLog.mu.Lock()
	defer errLog.mu.Unlock()
	result := make([]error, len(errLog.errors))
	copy(result, errLog.errors)
	return result
}

// MapSlice applies f to every element of a, returning a new slice.
func MapSlice[T any, M any](a []T, f func(T) M) []M {
	result := make([]M, len(a))
	for i, e := range a {
		result[i] = f(e)
	}
	return result
}
