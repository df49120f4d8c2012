// Package systemd reports service state to the systemd manager.
//
// Outside a Type=notify unit (NOTIFY_SOCKET unset) every call is a no-op.
package systemd

import (
	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd start-up is finished. It reports whether the notification was delivered.
func Ready() (bool, error) {
	return daemon.SdNotify(false, daemon.SdNotifyReady)
}

// Stopping tells systemd the service is shutting down.
func Stopping() (bool, error) {
	return daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func Status(msg string) (bool, error) {
	return daemon.SdNotify(false, "STATUS="+msg)
}
