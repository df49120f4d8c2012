package config

import (
	"strings"

	logx "pushrelay/pkg/logx"
)

// Summary returns safe structured attrs describing cfg for the startup log.
// Credential contents are never read here; only the path is reported.
func Summary(cfg *Config) []logx.Field {
	if cfg == nil {
		cfg = Default()
	}
	attrs := []logx.Field{
		logx.String("http.addr", strings.TrimSpace(cfg.HTTP.Addr)),
		logx.Strs("http.cors_origins", cfg.HTTP.CORSOrigins),
		logx.String("log.level", strings.TrimSpace(cfg.Log.Level)),
		logx.String("firebase.credentials_path", strings.TrimSpace(cfg.Firebase.CredentialsPath)),
		logx.Bool("firebase.validate_only", cfg.Firebase.ValidateOnly.Bool()),
		logx.Int("dispatch.fanout_workers", cfg.Dispatch.FanoutWorkers),
		logx.Bool("scheduler.enabled", cfg.Scheduler.Enabled.Bool()),
		logx.Bool("metrics.enabled", cfg.Metrics.Enabled.Bool()),
		logx.Bool("tracing.enabled", strings.TrimSpace(cfg.Tracing.Endpoint) != ""),
	}
	if p := strings.TrimSpace(cfg.Firebase.ProjectID); p != "" {
		attrs = append(attrs, logx.String("firebase.project_id", p))
	}
	if cfg.Scheduler.Enabled.Bool() {
		attrs = append(attrs,
			logx.Int("scheduler.interval", cfg.Scheduler.Interval),
			logx.String("scheduler.unit", strings.TrimSpace(cfg.Scheduler.Unit)),
		)
	}
	if cfg.Scheduler.Announcement.Enabled.Bool() {
		attrs = append(attrs, logx.String("scheduler.announcement.at", cfg.Scheduler.Announcement.At))
	}
	return attrs
}
