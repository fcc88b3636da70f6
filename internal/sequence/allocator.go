// Package sequence mints ticket identifiers. Every backend fuses the
// read-modify-write of the counter into one storage operation, so
// allocation is safe under any number of concurrent callers.
package sequence

import (
	"context"
	"errors"
	"fmt"
)

// ErrAllocationFailed is returned when the backing store could not produce
// a fresh value. Callers must not persist anything against it.
var ErrAllocationFailed = errors.New("sequence: allocation failed")

// Allocator issues unique, monotonically increasing identifiers.
type Allocator interface {
	// Allocate increments the counter and returns the post-increment value.
	Allocate(ctx context.Context) (int64, error)
	// Current returns the last value handed out, or 0 when none was.
	Current(ctx context.Context) (int64, error)
}

func allocationFailed(err error) error {
	if err == nil {
		return ErrAllocationFailed
	}
	return fmt.Errorf("%w: %w", ErrAllocationFailed, err)
}
