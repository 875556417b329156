package worker

import "context"

// Semaphore bounds the number of concurrent remote escalations. Local
// analysis scales with the core count, but remote calls are limited to a
// small fixed window regardless of how many local workers want to
// escalate at once.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a semaphore with the given capacity, floored at 1.
func NewSemaphore(capacity int) *Semaphore {
	if capacity <= 0 {
		capacity = 1
	}
	return &Semaphore{slots: make(chan struct{}, capacity)}
}

// Acquire blocks until a slot is free or ctx is done.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired by Acquire.
func (s *Semaphore) Release() {
	<-s.slots
}
