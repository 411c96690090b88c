package gateway

import (
	"context"
	"sync"

	"github.com/yndnr/notekeep-go/internal/core/domain"
)

// flight is one refresh in progress.
type flight struct {
	done chan struct{}
}

// coordinator guarantees a single refresh per expired credential.
// flight is nil while idle.
type coordinator struct {
	mu     sync.Mutex
	flight *flight

	onWait func(delta int)
}

// role is the outcome of join.
type role int

const (
	// roleRetry: the credential already changed; retry without refreshing.
	roleRetry role = iota
	// roleWait: another caller is refreshing; wait, then retry.
	roleWait
	// roleLead: this caller must refresh and then call finish.
	roleLead
)

// join decides what a caller holding a rejected credential does next.
// current is read under the lock so a rotation published by a finishing
// leader is never missed.
func (c *coordinator) join(used domain.Credential, current func() domain.Credential) (role, *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flight != nil {
		return roleWait, c.flight
	}
	if current() != used {
		return roleRetry, nil
	}

	c.flight = &flight{done: make(chan struct{})}
	return roleLead, c.flight
}

// finish returns the coordinator to idle and releases every waiter.
func (c *coordinator) finish(f *flight) {
	c.mu.Lock()
	if c.flight == f {
		c.flight = nil
	}
	c.mu.Unlock()
	close(f.done)
}

// inFlight returns the current flight, or nil.
func (c *coordinator) inFlight() *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flight
}

// wait blocks until f settles or ctx ends.
func (c *coordinator) wait(ctx context.Context, f *flight) error {
	if f == nil {
		return nil
	}
	if c.onWait != nil {
		c.onWait(1)
		defer c.onWait(-1)
	}

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
