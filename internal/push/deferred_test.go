package push

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	logx "pushrelay/pkg/logx"
)

func TestDeferredUnavailableUntilSet(t *testing.T) {
	t.Parallel()

	d := NewDeferred()
	_, err := d.Send(context.Background(), Message{Topic: "x"})
	require.ErrorIs(t, err, ErrUnavailable)

	d.SetUnavailable(errors.New("credentials missing"))
	_, err = d.Send(context.Background(), Message{Topic: "x"})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "credentials missing")

	first := SenderFunc(func(context.Context, Message) (string, error) { return "first", nil })
	second := SenderFunc(func(context.Context, Message) (string, error) { return "second", nil })
	assert.True(t, d.Set(first))
	assert.False(t, d.Set(second))
	assert.True(t, d.Ready())

	select {
	case <-d.Done():
	default:
		t.Fatal("Done should be closed after Set")
	}

	id, err := d.Send(context.Background(), Message{Topic: "x"})
	require.NoError(t, err)
	assert.Equal(t, "first", id)
}

func TestWatchCredentialsInstallsSenderWhenFileAppears(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, "firebase_credentials.json")
	d := NewDeferred()

	init := func(context.Context) (Sender, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		id := string(b)
		return SenderFunc(func(context.Context, Message) (string, error) { return id, nil }), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- WatchCredentials(ctx, path, d, init, logx.Nop()) }()

	// Give the watcher a moment to attach before the file shows up.
	time.Sleep(100 * time.Millisecond)
	require.False(t, d.Ready())
	require.NoError(t, os.WriteFile(path, []byte("msg-1"), 0o600))

	select {
	case <-d.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("sender was not installed")
	}
	require.NoError(t, <-done)

	id, err := d.Send(context.Background(), Message{})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", id)
}

func TestWatchCredentialsStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "creds.json")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchCredentials(ctx, path, NewDeferred(), func(context.Context) (Sender, error) {
			return nil, errors.New("not yet")
		}, logx.Nop())
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
