package session

import (
	"sync"
	"time"
)

// sleepSlice is the maximum length of one uninterruptible sleep. Pauses are
// cut into slices of this length so a stop request is observed quickly.
const sleepSlice = 250 * time.Millisecond

// CancelToken is a cooperative, one-shot cancellation flag. Cancelling never
// interrupts a step already in flight; it only prevents the next one from
// starting.
type CancelToken struct {
	once sync.Once
	done chan struct{}
}

// NewCancelToken returns an uncancelled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{done: make(chan struct{})}
}

// Cancel flips the token. Safe to call more than once and from any goroutine.
func (t *CancelToken) Cancel() {
	t.once.Do(func() { close(t.done) })
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed on cancellation.
func (t *CancelToken) Done() <-chan struct{} {
	return t.done
}

// Sleep pauses for d, waking early on cancellation. It reports true when the
// full duration elapsed and false when the token was cancelled first.
func (t *CancelToken) Sleep(d time.Duration) bool {
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for d > 0 {
		slice := d
		if slice > sleepSlice {
			slice = sleepSlice
		}
		timer.Reset(slice)
		select {
		case <-t.done:
			return false
		case <-timer.C:
			d -= slice
		}
	}
	return !t.Cancelled()
}
