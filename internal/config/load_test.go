package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.HTTP.Addr)
	assert.True(t, cfg.Scheduler.Enabled.Bool())
	assert.Equal(t, 6, cfg.Scheduler.Interval)
	assert.Equal(t, "hours", cfg.Scheduler.Unit)
	assert.Equal(t, "1", cfg.Scheduler.ReminderUser)
	assert.False(t, cfg.Scheduler.Announcement.Enabled.Bool())
	assert.Equal(t, DefaultCredentialsPath, cfg.Firebase.CredentialsPath)
	assert.Equal(t, 10*time.Second, cfg.Firebase.SendTimeoutDuration())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SCHEDULER_ENABLED", "no")
	t.Setenv("SCHEDULER_INTERVAL", "15")
	t.Setenv("SCHEDULER_UNIT", "fortnight")
	t.Setenv("FIREBASE_CREDENTIALS_PATH", "/etc/relay/creds.json")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.Scheduler.Enabled.Bool())
	assert.Equal(t, 15, cfg.Scheduler.Interval)
	// unknown units are left for the scheduler to normalize
	assert.Equal(t, "fortnight", cfg.Scheduler.Unit)
	assert.Equal(t, "/etc/relay/creds.json", cfg.Firebase.CredentialsPath)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSOrigins)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeFile(t, "relay.yaml", `
http:
  addr: "127.0.0.1:8080"
scheduler:
  enabled: "yes"
  interval: 30
  unit: minutes
  announcement:
    enabled: true
    at: "07:30"
`)
	t.Setenv("SCHEDULER_INTERVAL", "45")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.Addr)
	assert.Equal(t, 45, cfg.Scheduler.Interval, "env wins over file")
	assert.Equal(t, "minutes", cfg.Scheduler.Unit)
	assert.True(t, cfg.Scheduler.Announcement.Enabled.Bool())
	assert.Equal(t, "07:30", cfg.Scheduler.Announcement.At)
	// untouched sections keep defaults
	assert.Equal(t, "announcements", cfg.Scheduler.Announcement.Topic)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "relay.json", `{"http":{"addr":":1"},"bogus":true}`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsTrailingData(t *testing.T) {
	path := writeFile(t, "relay.json", `{"http":{"addr":":1"}}{"http":{}}`)
	_, err := Load(path)
	require.ErrorContains(t, err, "trailing data")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(c *Config)
		errSub string
	}{
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }, "scheduler.interval"},
		{"zero interval while disabled", func(c *Config) { c.Scheduler.Enabled = false; c.Scheduler.Interval = 0 }, ""},
		{"bad duration", func(c *Config) { c.Firebase.SendTimeout = "soon" }, "firebase.send_timeout"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad announcement time", func(c *Config) {
			c.Scheduler.Announcement.Enabled = true
			c.Scheduler.Announcement.At = "9am"
		}, "scheduler.announcement.at"},
		{"negative rps", func(c *Config) { c.Dispatch.FanoutRPS = -1 }, "dispatch.fanout_rps"},
		{"negative timeout", func(c *Config) { c.HTTP.IdleTimeout = "-1s" }, "http.idle_timeout: duration must be >= 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			if tc.errSub == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.errSub)
		})
	}
}

func TestDurationAccessorsFallBackToDefaults(t *testing.T) {
	t.Parallel()

	c := Default()
	c.HTTP.ReadHeaderTimeout = ""
	c.HTTP.WriteTimeout = "0s"
	c.HTTP.IdleTimeout = "2m"
	c.Firebase.SendTimeout = "nonsense"
	c.Scheduler.JobTimeout = " 45s "

	assert.Equal(t, DefaultReadHeaderTimeout, c.HTTP.ReadHeaderTimeoutDuration())
	assert.Equal(t, DefaultWriteTimeout, c.HTTP.WriteTimeoutDuration())
	assert.Equal(t, 2*time.Minute, c.HTTP.IdleTimeoutDuration())
	assert.Equal(t, DefaultSendTimeout, c.Firebase.SendTimeoutDuration())
	assert.Equal(t, 45*time.Second, c.Scheduler.JobTimeoutDuration())
}

func TestYAMLToJSON(t *testing.T) {
	t.Parallel()

	j, err := yamlToJSON([]byte("http:\n  addr: \":9\"\n8080: port\n"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"http":{"addr":":9"},"8080":"port"}`, string(j))

	j, err = yamlToJSON([]byte("# only a comment\n"))
	require.NoError(t, err)
	assert.Equal(t, "{}", string(j))

	_, err = yamlToJSON([]byte("a: [1"))
	require.ErrorContains(t, err, "yaml:")
}

func TestParseBool(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"1", "true", "TRUE", "yes", "on", " y "} {
		b, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.True(t, b, s)
	}
	for _, s := range []string{"", "0", "false", "No", "off"} {
		b, err := ParseBool(s)
		require.NoError(t, err, s)
		assert.False(t, b, s)
	}
	_, err := ParseBool("maybe")
	require.Error(t, err)
}

func TestEnvDescriptionListsSchedulerVars(t *testing.T) {
	t.Parallel()

	desc, err := EnvDescription()
	require.NoError(t, err)
	for _, name := range []string{"SCHEDULER_ENABLED", "SCHEDULER_INTERVAL", "SCHEDULER_UNIT", "FIREBASE_CREDENTIALS_PATH"} {
		assert.Contains(t, desc, name)
	}
}
