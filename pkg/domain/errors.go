package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// BrainError is the fatal failure kind for the cognition gateway:
// retries are exhausted or the failure was not retryable. Callers map
// it to "reasoning unavailable".
type BrainError struct {
	Err error
}

func (e *BrainError) Error() string {
	return fmt.Sprintf("brain service unavailable: %v", e.Err)
}

func (e *BrainError) Unwrap() error { return e.Err }

// StoreError is the fatal failure kind for the session store. It is
// never retried: state cannot be trusted without the store. Callers
// map it to "state unavailable".
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("session store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
