package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"pushrelay/internal/push"
)

// fakeSender records every message and fails for the configured topics.
type fakeSender struct {
	mu     sync.Mutex
	sent   []push.Message
	fail   map[string]error
	panics map[string]bool
	seq    atomic.Int64
}

func newFakeSender() *fakeSender {
	return &fakeSender{fail: map[string]error{}, panics: map[string]bool{}}
}

func (f *fakeSender) failFor(topic string) *fakeSender {
	f.fail[topic] = errors.New("provider rejected " + topic)
	return f
}

func (f *fakeSender) Send(_ context.Context, m push.Message) (string, error) {
	f.mu.Lock()
	f.sent = append(f.sent, m)
	err := f.fail[m.Topic]
	p := f.panics[m.Topic]
	f.mu.Unlock()
	if p {
		panic("boom")
	}
	if err != nil {
		return "", err
	}
	return "msg-" + m.Topic, nil
}

func (f *fakeSender) messages() []push.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]push.Message(nil), f.sent...)
}
