package config

// Config is the full process configuration.
//
// Durations are Go duration strings ("500ms", "10s", "1m"); an empty string means "use default".
// Every field can be overridden from the environment (see the env tags), which wins over the file.
type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	Log       LogConfig       `json:"log"`
	Firebase  FirebaseConfig  `json:"firebase"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Metrics   MetricsConfig   `json:"metrics"`
	Tracing   TracingConfig   `json:"tracing"`
}

type HTTPConfig struct {
	Addr              string   `json:"addr" env:"HTTP_ADDR" env-description:"listen address"`
	ReadHeaderTimeout string   `json:"read_header_timeout,omitempty" env:"HTTP_READ_HEADER_TIMEOUT" env-description:"max time to read request headers"`
	WriteTimeout      string   `json:"write_timeout,omitempty" env:"HTTP_WRITE_TIMEOUT" env-description:"max time to write a response"`
	IdleTimeout       string   `json:"idle_timeout,omitempty" env:"HTTP_IDLE_TIMEOUT" env-description:"keep-alive idle timeout"`
	CORSOrigins       []string `json:"cors_allowed_origins,omitempty" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-description:"comma separated list of allowed origins"`
}

type LogConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" env-description:"trace|debug|info|warn|error"`
	Format string `json:"format,omitempty" env:"LOG_FORMAT" env-description:"console|json"`
	File   string `json:"file,omitempty" env:"LOG_FILE" env-description:"optional JSON log file"`
}

// FirebaseConfig configures the FCM sender.
//
// ProjectID is optional; when empty the project_id of the credentials file is used.
type FirebaseConfig struct {
	CredentialsPath  string `json:"credentials_path" env:"FIREBASE_CREDENTIALS_PATH" env-description:"service account JSON file"`
	ProjectID        string `json:"project_id,omitempty" env:"FIREBASE_PROJECT_ID" env-description:"overrides the credentials project_id"`
	Endpoint         string `json:"endpoint,omitempty" env:"FCM_ENDPOINT" env-description:"FCM API base URL override"`
	ValidateOnly     Flag   `json:"validate_only,omitempty" env:"FCM_VALIDATE_ONLY" env-description:"ask FCM to validate without delivering"`
	SendTimeout      string `json:"send_timeout,omitempty" env:"FCM_SEND_TIMEOUT" env-description:"per-message send timeout"`
	WatchCredentials Flag   `json:"watch_credentials" env:"FIREBASE_WATCH_CREDENTIALS" env-description:"retry sender init when the credentials file appears"`
}

// DispatchConfig controls multi-recipient fan-out.
//
// FanoutWorkers <= 1 sends sequentially. FanoutRPS 0 disables throttling.
type DispatchConfig struct {
	FanoutWorkers int `json:"fanout_workers,omitempty" env:"DISPATCH_FANOUT_WORKERS" env-description:"parallel sends per fan-out request"`
	FanoutRPS     int `json:"fanout_rps,omitempty" env:"DISPATCH_FANOUT_RPS" env-description:"max fan-out sends per second (0 = unlimited)"`
}

type SchedulerConfig struct {
	Enabled      Flag               `json:"enabled" env:"SCHEDULER_ENABLED" env-description:"run the background reminder job"`
	Interval     int                `json:"interval" env:"SCHEDULER_INTERVAL" env-description:"reminder interval, in units"`
	Unit         string             `json:"unit" env:"SCHEDULER_UNIT" env-description:"seconds|minutes|hours"`
	Timezone     string             `json:"timezone,omitempty" env:"SCHEDULER_TIMEZONE" env-description:"IANA zone for daily jobs"`
	JobTimeout   string             `json:"job_timeout,omitempty" env:"SCHEDULER_JOB_TIMEOUT" env-description:"max duration of one job run"`
	ReminderUser string             `json:"reminder_user,omitempty" env:"SCHEDULER_REMINDER_USER" env-description:"recipient of the booking reminder"`
	Announcement AnnouncementConfig `json:"announcement"`
}

type AnnouncementConfig struct {
	Enabled Flag   `json:"enabled" env:"ANNOUNCEMENT_ENABLED" env-description:"send the daily announcement"`
	At      string `json:"at,omitempty" env:"ANNOUNCEMENT_AT" env-description:"HH:MM local time"`
	Topic   string `json:"topic,omitempty" env:"ANNOUNCEMENT_TOPIC" env-description:"announcement topic"`
}

type MetricsConfig struct {
	Enabled Flag `json:"enabled" env:"METRICS_ENABLED" env-description:"serve /metrics"`
}

// TracingConfig enables OTLP/HTTP trace export when Endpoint is set.
type TracingConfig struct {
	Endpoint    string `json:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-description:"OTLP/HTTP collector host:port"`
	ServiceName string `json:"service_name,omitempty" env:"OTEL_SERVICE_NAME" env-description:"service.name resource attribute"`
}
