package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"pushrelay/internal/eventbus"
	logx "pushrelay/pkg/logx"
)

func New(cfg Config, log logx.Logger, bus eventbus.Bus) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	unit, ok := ParseUnit(cfg.Unit)
	if !ok {
		log.Warn("unrecognized scheduler unit; falling back to seconds",
			logx.String("unit", cfg.Unit),
			logx.Int("interval", cfg.Interval),
		)
	}
	return &Service{
		cfg:   cfg,
		log:   log,
		bus:   bus,
		unit:  unit,
		every: Every(cfg.Interval, unit),
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return StateRunning
	}
	return StateStopped
}

// Interval is the normalized recurring interval.
func (s *Service) Interval() time.Duration { return s.every }

// Start starts triggering registered schedules. A disabled scheduler stays stopped.
// Jobs receive a context derived from ctx that is cancelled by Stop.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled; not starting")
		return
	}

	s.runCtx, s.cancelRun = context.WithCancel(ctx)
	loc := s.loadLocationLocked()
	s.loc = loc
	clog := cronLogger{log: s.log}
	s.c = cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.SkipIfStillRunning(clog)),
	)
	for i := range s.defs {
		if err := s.addCronLocked(&s.defs[i]); err != nil {
			s.log.Error("schedule register failed", logx.String("name", s.defs[i].name), logx.String("spec", s.defs[i].spec), logx.Err(err))
		}
	}
	s.c.Start()
	s.log.Info("scheduler started",
		logx.String("tz", loc.String()),
		logx.Int("schedules", len(s.defs)),
		logx.Duration("every", s.every),
	)
}

// Stop cancels running jobs and waits for them to return, or for ctx to end.
// Registered schedules are kept so a later Start resumes them.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()

	s.mu.Lock()
	c := s.c
	s.c = nil
	cancel := s.cancelRun
	s.cancelRun = nil
	for i := range s.defs {
		s.defs[i].entryID = 0
	}
	s.mu.Unlock()

	if c == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out waiting for running jobs")
	}
	s.log.Info("scheduler stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	cfg := s.cfg
	defs := make([]scheduleDef, len(s.defs))
	copy(defs, s.defs)
	c := s.c
	loc := s.loc
	s.mu.Unlock()

	if loc == nil {
		loc = time.Local
	}
	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		tz = loc.String()
	}

	items := make([]ScheduleInfo, 0, len(defs))
	for _, d := range defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.timeout}
		if c != nil && d.entryID != 0 {
			e := c.Entry(d.entryID)
			it.Next = e.Next
			it.Prev = e.Prev
		}
		items = append(items, it)
	}

	state := StateStopped
	if c != nil {
		state = StateRunning
	}
	return Snapshot{
		Enabled:   cfg.Enabled,
		State:     state,
		Timezone:  tz,
		Interval:  cfg.Interval,
		Unit:      s.unit,
		Every:     s.every,
		Schedules: items,
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
