// Package lock provides run locks that close the window between the
// duplicate-execution check and the recording of a new execution. Two
// workers racing on the same flow and customer serialize on the lock key.
package lock

import (
	"context"
	"time"
)

// Locker acquires short-lived exclusive locks keyed by flow and customer.
type Locker interface {
	// Acquire returns true when the caller now holds the lock. A false
	// return with a nil error means another holder got there first.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// RunKey builds the lock key guarding one flow execution for one customer.
func RunKey(flowID, customerEmail string) string {
	return "fluxo:run:" + flowID + ":" + customerEmail
}
