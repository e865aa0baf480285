package base

import "sync"

// Readiness is a one-shot signal that a provider finished (or failed) its
// initialization.
type Readiness struct {
	once sync.Once
	done chan struct{}
	err  error
}

func NewReadiness() *Readiness {
	return &Readiness{done: make(chan struct{})}
}

// Resolved returns a Readiness that is already settled with err.
func Resolved(err error) *Readiness {
	r := NewReadiness()
	r.Resolve(err)
	return r
}

// Resolve settles the signal. Only the first call has any effect; it reports
// whether this call was that one.
func (r *Readiness) Resolve(err error) bool {
	resolved := false
	r.once.Do(func() {
		r.err = err
		close(r.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the signal is settled.
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

// Err returns the initialization error. It is only meaningful after Done.
func (r *Readiness) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}
