package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"pushrelay/internal/eventbus"
	logx "pushrelay/pkg/logx"
)

// AddRecurring registers name at the configured interval/unit cadence.
func (s *Service) AddRecurring(name string, job JobFunc) (string, error) {
	if s.every <= 0 {
		return "", fmt.Errorf("scheduler interval must be > 0, got %d", s.cfg.Interval)
	}
	return s.AddInterval(name, s.every, job)
}

// AddInterval registers job every d. The first run happens one interval after Start.
func (s *Service) AddInterval(name string, every time.Duration, job JobFunc) (string, error) {
	if every <= 0 {
		return "", errors.New("interval must be > 0")
	}
	return s.add(scheduleDef{
		name:  name,
		spec:  fmt.Sprintf("@every %s", every.String()),
		every: every,
		job:   job,
	})
}

// AddDaily registers job once a day at HH:MM in the scheduler timezone.
func (s *Service) AddDaily(name, atHHMM string, job JobFunc) (string, error) {
	h, m, err := parseHHMM(atHHMM)
	if err != nil {
		return "", err
	}
	return s.AddCron(name, fmt.Sprintf("%d %d * * *", m, h), job)
}

func (s *Service) AddCron(name, spec string, job JobFunc) (string, error) {
	if _, err := s.parser.Parse(spec); err != nil {
		return "", fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return s.add(scheduleDef{name: name, spec: spec, job: job})
}

func (s *Service) add(d scheduleDef) (string, error) {
	if strings.TrimSpace(d.name) == "" {
		return "", errors.New("name required")
	}
	if d.job == nil {
		return "", errors.New("job required")
	}
	d.timeout = s.cfg.JobTimeout

	s.mu.Lock()
	defer s.mu.Unlock()
	// Upsert by name so repeated registration never duplicates a job.
	_ = s.removeScheduleLocked(d.name)
	s.defs = append(s.defs, d)
	if s.c == nil {
		// Not started yet: registered when Start runs.
		return d.name, nil
	}
	def := &s.defs[len(s.defs)-1]
	if err := s.addCronLocked(def); err != nil {
		s.log.Error("schedule register failed", logx.String("name", d.name), logx.String("spec", d.spec), logx.Err(err))
		return d.name, err
	}
	args := []logx.Field{logx.String("name", d.name), logx.String("spec", d.spec), logx.Duration("timeout", d.timeout)}
	if next := s.previewNextRunsLocked(d.spec, 3); next != "" {
		args = append(args, logx.String("next", next))
	}
	s.log.Debug("schedule registered", args...)
	return d.name, nil
}

// removeScheduleLocked removes all defs matching name and unregisters them from cron if running.
// Call with s.mu held.
func (s *Service) removeScheduleLocked(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	removed := false
	n := 0
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

// addCronLocked registers d with the running cron. Call with s.mu held.
func (s *Service) addCronLocked(d *scheduleDef) error {
	def := *d
	job := cron.FuncJob(func() { s.runJob(def) })

	if def.every > 0 {
		d.entryID = s.c.Schedule(cron.Every(def.every), job)
		return nil
	}
	eid, err := s.c.AddJob(def.spec, job)
	if err == nil {
		d.entryID = eid
	}
	return err
}

func (s *Service) runJob(d scheduleDef) {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.safeRun(ctx, d)
	elapsed := time.Since(start)

	run := eventbus.JobRun{Job: d.name, OK: err == nil, Duration: elapsed}
	if err != nil {
		run.Err = err.Error()
		s.log.Warn("job failed; will retry at next interval", logx.String("name", d.name), logx.Duration("elapsed", elapsed), logx.Err(err))
	} else {
		s.log.Info("job finished", logx.String("name", d.name), logx.Duration("elapsed", elapsed))
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeSchedulerRun, Data: run})
	}
}

func (s *Service) safeRun(ctx context.Context, d scheduleDef) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("job panicked", logx.String("name", d.name), logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			err = fmt.Errorf("panic in %s: %v", d.name, r)
		}
	}()
	return d.job(ctx)
}

// previewNextRunsLocked returns a short list of upcoming run times for spec. Call with s.mu held.
func (s *Service) previewNextRunsLocked(spec string, n int) string {
	if !s.log.Enabled(logx.LevelDebug) || n <= 0 {
		return ""
	}
	loc := s.loc
	if loc == nil {
		loc = s.loadLocationLocked()
	}
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return ""
	}
	t := time.Now().In(loc)
	var b strings.Builder
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(t.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
