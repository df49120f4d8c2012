package scheduler

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pushrelay/internal/eventbus"
	logx "pushrelay/pkg/logx"
)

func TestParseUnit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Unit
		ok   bool
	}{
		{"seconds", UnitSeconds, true},
		{"Minutes", UnitMinutes, true},
		{" hours ", UnitHours, true},
		{"fortnight", UnitSeconds, false},
		{"", UnitSeconds, false},
		{"hour", UnitSeconds, false},
	}
	for _, tc := range cases {
		got, ok := ParseUnit(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseUnit(%q)=(%q,%v) want (%q,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestEvery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 6*time.Hour, Every(6, UnitHours))
	assert.Equal(t, 15*time.Minute, Every(15, UnitMinutes))
	assert.Equal(t, 30*time.Second, Every(30, UnitSeconds))
	assert.Equal(t, time.Duration(0), Every(0, UnitHours))
	assert.Equal(t, time.Duration(0), Every(-2, UnitSeconds))
}

func TestUnknownUnitFallsBackToSeconds(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := New(Config{Enabled: true, Interval: 6, Unit: "fortnight"}, logx.NewJSON(&buf, "info"), nil)

	assert.Contains(t, buf.String(), "falling back to seconds")
	assert.Contains(t, buf.String(), `"unit":"fortnight"`)
	assert.Equal(t, 6*time.Second, s.Interval())

	_, err := s.AddRecurring("booking_reminder", func(context.Context) error { return nil })
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Len(t, snap.Schedules, 1)
	assert.Equal(t, "@every 6s", snap.Schedules[0].Spec)
	assert.Equal(t, UnitSeconds, snap.Unit)
}

func TestKnownUnitLogsNoFallback(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := New(Config{Enabled: true, Interval: 2, Unit: "minutes"}, logx.NewJSON(&buf, "info"), nil)
	assert.NotContains(t, buf.String(), "falling back")
	assert.Equal(t, 2*time.Minute, s.Interval())
}

func TestDisabledSchedulerStaysStopped(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := New(Config{Enabled: false, Interval: 1, Unit: "seconds"}, logx.Nop(), nil)
	_, err := s.AddRecurring("job", func(context.Context) error { runs.Add(1); return nil })
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop(context.Background())

	assert.Equal(t, StateStopped, s.State())
	time.Sleep(1500 * time.Millisecond)
	assert.Zero(t, runs.Load())
}

func TestAddRecurringRejectsZeroInterval(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Interval: 0, Unit: "seconds"}, logx.Nop(), nil)
	_, err := s.AddRecurring("job", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestRecurringJobKeepsRunningAfterFailures(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	var runs atomic.Int32
	s := New(Config{Enabled: true, Interval: 1, Unit: "seconds", JobTimeout: time.Second}, logx.Nop(), bus)
	_, err := s.AddRecurring("flaky", func(context.Context) error {
		n := runs.Add(1)
		if n == 1 {
			return errors.New("provider down")
		}
		if n == 2 {
			panic("unexpected")
		}
		return nil
	})
	require.NoError(t, err)

	s.Start(context.Background())
	require.Equal(t, StateRunning, s.State())

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 6*time.Second, 50*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Stop(stopCtx)
	assert.Equal(t, StateStopped, s.State())

	var oks, fails int
	for len(events) > 0 {
		ev := <-events
		run, ok := ev.Data.(eventbus.JobRun)
		require.True(t, ok)
		assert.Equal(t, "flaky", run.Job)
		if run.OK {
			oks++
		} else {
			fails++
		}
	}
	assert.Equal(t, 2, fails, "error and panic are both reported")
	assert.GreaterOrEqual(t, oks, 1)
}

func TestStopCancelsRunningJob(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	started := make(chan struct{})
	var cancelled atomic.Bool
	s := New(Config{Enabled: true, Interval: 1, Unit: "seconds"}, logx.Nop(), nil)
	_, err := s.AddRecurring("long", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	})
	require.NoError(t, err)

	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s.Stop(stopCtx)
	assert.True(t, cancelled.Load())
}

func TestAddDailyAndRemove(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Interval: 6, Unit: "hours", Timezone: "UTC"}, logx.Nop(), nil)
	_, err := s.AddDaily("daily_announcement", "09:00", func(context.Context) error { return nil })
	require.NoError(t, err)

	_, err = s.AddDaily("bad", "25:00", func(context.Context) error { return nil })
	require.Error(t, err)

	s.Start(context.Background())
	defer s.Stop(context.Background())

	snap := s.Snapshot()
	require.Len(t, snap.Schedules, 1)
	info := snap.Schedules[0]
	assert.Equal(t, "0 9 * * *", info.Spec)
	assert.Equal(t, 9, info.Next.UTC().Hour())
	assert.Equal(t, 0, info.Next.UTC().Minute())
}

func TestAddIsUpsertByName(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Interval: 1, Unit: "minutes"}, logx.Nop(), nil)
	for i := 0; i < 3; i++ {
		_, err := s.AddRecurring("booking_reminder", func(context.Context) error { return nil })
		require.NoError(t, err)
	}
	snap := s.Snapshot()
	require.Len(t, snap.Schedules, 1)
	assert.True(t, strings.HasPrefix(snap.Schedules[0].Spec, "@every 1m"))
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()

	h, m, err := parseHHMM(" 07:05 ")
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 5, m)

	for _, bad := range []string{"", "7", "24:00", "12:60", "ab:cd", "1:2:3"} {
		_, _, err := parseHHMM(bad)
		assert.Error(t, err, bad)
	}
}
