// Package scheduler runs the relay's recurring background jobs on robfig/cron.
//
// The service owns one cron instance. Jobs run directly on cron's goroutines,
// bounded by a per-job timeout and cancelled when the service stops; a job that
// is still running when its next tick arrives is skipped, not queued.
package scheduler
