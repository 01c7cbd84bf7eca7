package transfercache

import "sync"

// Signal is a one-shot notification that the application has settled
// after the initial render.
type Signal struct {
	once sync.Once
	done chan struct{}
}

func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// MarkStable fires the signal. Safe to call any number of times from
// any goroutine; only the first call has an effect.
func (s *Signal) MarkStable() {
	s.once.Do(func() { close(s.done) })
}

// Done returns a channel that is closed once the signal has fired.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}
