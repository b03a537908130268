// Package async runs blocking work, such as a whole CLI action, off the calling goroutine so the caller can also
// wait on an interrupt.
package async

// Run calls f in a new goroutine and delivers its result on the returned channel. The channel is buffered, so the
// goroutine finishes even if nobody ever receives.
func Run[T any](f func() T) <-chan T {
	c := make(chan T, 1)
	go func() {
		c <- f()
	}()
	return c
}
