package push

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Deferred is a Sender whose backing client is installed after construction.
// Until Set succeeds every Send fails with ErrUnavailable, which keeps the
// process serving in a degraded state when credentials are missing.
type Deferred struct {
	cur   atomic.Pointer[senderBox]
	cause atomic.Pointer[error]
	once  sync.Once
	ready chan struct{}
}

type senderBox struct{ s Sender }

func NewDeferred() *Deferred {
	return &Deferred{ready: make(chan struct{})}
}

// Set installs s. Only the first call has an effect; it reports whether s was installed.
func (d *Deferred) Set(s Sender) bool {
	if s == nil {
		return false
	}
	installed := false
	d.once.Do(func() {
		d.cur.Store(&senderBox{s: s})
		close(d.ready)
		installed = true
	})
	return installed
}

// SetUnavailable records why no sender is installed; it is included in send errors.
func (d *Deferred) SetUnavailable(err error) {
	if err != nil {
		d.cause.Store(&err)
	}
}

func (d *Deferred) Ready() bool { return d.cur.Load() != nil }

// Done is closed once a sender has been installed.
func (d *Deferred) Done() <-chan struct{} { return d.ready }

func (d *Deferred) Send(ctx context.Context, m Message) (string, error) {
	b := d.cur.Load()
	if b == nil {
		if c := d.cause.Load(); c != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, *c)
		}
		return "", ErrUnavailable
	}
	return b.s.Send(ctx, m)
}
