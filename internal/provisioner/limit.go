package provisioner

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Limited bounds how many tool runs may be in flight at once. Callers that
// cannot get a slot wait until their context is done.
type Limited struct {
	next Provisioner
	sem  *semaphore.Weighted
}

func Limit(next Provisioner, n int) *Limited {
	if n < 1 {
		n = 1
	}
	return &Limited{
		next: next,
		sem:  semaphore.NewWeighted(int64(n)),
	}
}

func (l *Limited) Create(ctx context.Context, client string) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for provisioning slot: %w", err)
	}
	defer l.sem.Release(1)
	return l.next.Create(ctx, client)
}

func (l *Limited) Remove(ctx context.Context, client string) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for provisioning slot: %w", err)
	}
	defer l.sem.Release(1)
	return l.next.Remove(ctx, client)
}
