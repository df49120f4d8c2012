package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"pushrelay/internal/eventbus"
	logx "pushrelay/pkg/logx"
)

// Config controls the scheduler.
//
// Interval and Unit define the recurring reminder cadence. Unit is one of
// seconds, minutes or hours; anything else is treated as seconds.
type Config struct {
	Enabled    bool
	Interval   int
	Unit       string
	Timezone   string // IANA TZ, e.g. "Asia/Riyadh"; empty means Local
	JobTimeout time.Duration
}

// JobFunc is the body of a scheduled job. A returned error is logged; the
// schedule keeps running either way.
type JobFunc func(ctx context.Context) error

type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
)

type scheduleDef struct {
	name    string
	spec    string // "@every <d>" or a 5-field cron spec
	every   time.Duration
	timeout time.Duration
	job     JobFunc
	entryID cron.EntryID
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location
	bus eventbus.Bus

	every time.Duration
	unit  Unit

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	runCtx    context.Context
	cancelRun context.CancelFunc
}

type ScheduleInfo struct {
	Name    string        `json:"name"`
	Spec    string        `json:"spec"`
	Timeout time.Duration `json:"timeout"`
	Next    time.Time     `json:"next"`
	Prev    time.Time     `json:"prev"`
}

type Snapshot struct {
	Enabled   bool           `json:"enabled"`
	State     State          `json:"state"`
	Timezone  string         `json:"timezone"`
	Interval  int            `json:"interval"`
	Unit      Unit           `json:"unit"`
	Every     time.Duration  `json:"every"`
	Schedules []ScheduleInfo `json:"schedules"`
}
