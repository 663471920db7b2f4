package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
)

// Order identifiers are short numeric strings drawn from 100000-999999. They
// are random rather than sequential so the public identifier leaks nothing
// about order volume.
const (
	idMin = 100000
	idMax = 999999

	// maxAllocateAttempts bounds the collision-retry loop; without a cap the
	// allocator becomes an availability hazard as the identifier space fills.
	maxAllocateAttempts = 20
)

var ErrOrderIDSpaceExhausted = errors.New("order identifier space exhausted")

// ExistenceChecker reports whether an order with the given identifier is
// already persisted.
type ExistenceChecker interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type IDAllocator struct {
	store ExistenceChecker
}

func NewIDAllocator(store ExistenceChecker) *IDAllocator {
	return &IDAllocator{store: store}
}

// Allocate draws candidates until one is free of collisions. The identifier
// is not reserved here; the caller consumes it inside the same transaction
// that creates the order, keeping the collision window as small as possible.
func (a *IDAllocator) Allocate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		candidate := fmt.Sprintf("%d", idMin+rand.IntN(idMax-idMin+1))

		exists, err := a.store.ExistsByID(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("allocator: failed to check order id %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrOrderIDSpaceExhausted
}
