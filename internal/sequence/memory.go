package sequence

import (
	"context"
	"sync/atomic"
)

// MemoryAllocator is a process-local counter for the memory storage driver
// and tests.
type MemoryAllocator struct {
	value atomic.Int64
}

// NewMemoryAllocator starts the counter at zero.
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{}
}

func (a *MemoryAllocator) Allocate(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, allocationFailed(err)
	}
	return a.value.Add(1), nil
}

func (a *MemoryAllocator) Current(context.Context) (int64, error) {
	return a.value.Load(), nil
}
