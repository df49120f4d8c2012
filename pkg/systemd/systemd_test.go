package systemd

import "testing"

func TestNotifyWithoutSocketIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")

	for name, fn := range map[string]func() (bool, error){
		"ready":    Ready,
		"stopping": Stopping,
		"status":   func() (bool, error) { return Status("idle") },
	} {
		sent, err := fn()
		if err != nil || sent {
			t.Fatalf("%s: sent=%v err=%v, want false <nil>", name, sent, err)
		}
	}
}
