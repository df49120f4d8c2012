package eventbus

import "time"

// Event types published by the relay.
const (
	TypeDispatchSent   = "dispatch.sent"
	TypeDispatchFailed = "dispatch.failed"
	TypeSchedulerRun   = "scheduler.run"
	TypeSenderReady    = "sender.ready"
)

// DispatchOutcome is the Data of dispatch.sent / dispatch.failed.
type DispatchOutcome struct {
	Kind        string // "user" or "topic"
	Destination string
	MessageID   string
	Err         string
	Duration    time.Duration
}

// JobRun is the Data of scheduler.run.
type JobRun struct {
	Job      string
	OK       bool
	Err      string
	Duration time.Duration
}
