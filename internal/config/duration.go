package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 60 * time.Second
	DefaultIdleTimeout       = 90 * time.Second
	DefaultSendTimeout       = 10 * time.Second
	DefaultJobTimeout        = 30 * time.Second
)

// durationField is a duration setting kept as text in the config, with the
// value used when it is empty or zero.
type durationField struct {
	path string
	raw  string
	def  time.Duration
}

func (f durationField) parse() (time.Duration, error) {
	s := strings.TrimSpace(f.raw)
	if s == "" {
		return f.def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", f.path, f.raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0, got %s", f.path, d)
	}
	if d == 0 {
		return f.def, nil
	}
	return d, nil
}

// value never fails; Validate reports what parse rejects.
func (f durationField) value() time.Duration {
	d, err := f.parse()
	if err != nil {
		return f.def
	}
	return d
}

func (c *Config) durationFields() []durationField {
	return []durationField{
		c.HTTP.readHeaderTimeout(),
		c.HTTP.writeTimeout(),
		c.HTTP.idleTimeout(),
		c.Firebase.sendTimeout(),
		c.Scheduler.jobTimeout(),
	}
}

func (h HTTPConfig) readHeaderTimeout() durationField {
	return durationField{"http.read_header_timeout", h.ReadHeaderTimeout, DefaultReadHeaderTimeout}
}

func (h HTTPConfig) writeTimeout() durationField {
	return durationField{"http.write_timeout", h.WriteTimeout, DefaultWriteTimeout}
}

func (h HTTPConfig) idleTimeout() durationField {
	return durationField{"http.idle_timeout", h.IdleTimeout, DefaultIdleTimeout}
}

func (f FirebaseConfig) sendTimeout() durationField {
	return durationField{"firebase.send_timeout", f.SendTimeout, DefaultSendTimeout}
}

func (s SchedulerConfig) jobTimeout() durationField {
	return durationField{"scheduler.job_timeout", s.JobTimeout, DefaultJobTimeout}
}

func (h HTTPConfig) ReadHeaderTimeoutDuration() time.Duration { return h.readHeaderTimeout().value() }
func (h HTTPConfig) WriteTimeoutDuration() time.Duration      { return h.writeTimeout().value() }
func (h HTTPConfig) IdleTimeoutDuration() time.Duration       { return h.idleTimeout().value() }

func (f FirebaseConfig) SendTimeoutDuration() time.Duration { return f.sendTimeout().value() }

func (s SchedulerConfig) JobTimeoutDuration() time.Duration { return s.jobTimeout().value() }
