// Package config loads the YAML runtime configuration: database
// connection, Graph API credentials, and the tunables for every
// subsystem (queue, subscription manager, relay listener, discovery
// poller, distribution). Secrets are never read from YAML — every
// secret-shaped field is an environment variable name, read with Secret at
// the point of use.
package config

import "time"

// YAMLConfig is the top-level shape of the on-disk configuration file.
type YAMLConfig struct {
	Database     DatabaseYAMLConfig     `yaml:"database"`
	Graph        GraphYAMLConfig        `yaml:"graph"`
	Queue        QueueYAMLConfig        `yaml:"queue"`
	Discovery    DiscoveryYAMLConfig    `yaml:"discovery"`
	Subscription SubscriptionYAMLConfig `yaml:"subscription"`
	Relay        RelayYAMLConfig        `yaml:"relay"`
	Distribution DistributionYAMLConfig `yaml:"distribution"`
	HTTP         HTTPYAMLConfig         `yaml:"http"`
	Logging      LoggingYAMLConfig      `yaml:"logging"`
	Retention    RetentionYAMLConfig    `yaml:"retention"`
}

// DatabaseYAMLConfig configures the PostgreSQL connection pool.
type DatabaseYAMLConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	PasswordEnv string `yaml:"password_env"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"ssl_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// GraphYAMLConfig configures the Microsoft Graph API client.
type GraphYAMLConfig struct {
	TenantID        string `yaml:"tenant_id"`
	ClientID        string `yaml:"client_id"`
	ClientSecretEnv string `yaml:"client_secret_env"`
	UseBeta         bool   `yaml:"use_beta"`
}

// QueueYAMLConfig configures the job worker pool. Field names mirror
// pkg/queue.PoolConfig directly; see ToPoolConfig.
type QueueYAMLConfig struct {
	WorkerCount             int           `yaml:"worker_count"`
	MaxConcurrentJobs       int           `yaml:"max_concurrent_jobs"`
	PollInterval            time.Duration `yaml:"poll_interval"`
	PollIntervalJitter      time.Duration `yaml:"poll_interval_jitter"`
	JobTimeout              time.Duration `yaml:"job_timeout"`
	GracefulShutdownTimeout time.Duration `yaml:"graceful_shutdown_timeout"`
	HeartbeatInterval       time.Duration `yaml:"heartbeat_interval"`
	OrphanDetectionInterval time.Duration `yaml:"orphan_detection_interval"`
	OrphanThreshold         time.Duration `yaml:"orphan_threshold"`
}

// DiscoveryYAMLConfig configures the safety-net calendar poller and its
// filter thresholds.
type DiscoveryYAMLConfig struct {
	PollInterval                  time.Duration `yaml:"poll_interval"`
	MinimumMeetingDurationMinutes int           `yaml:"minimum_meeting_duration_minutes"`
	PilotModeEnabled              bool          `yaml:"pilot_mode_enabled"`
}

// SubscriptionYAMLConfig configures the callRecords webhook subscription
// lifecycle and its failure alerting.
type SubscriptionYAMLConfig struct {
	WebhookURL        string        `yaml:"webhook_url"`
	ClientStateEnv    string        `yaml:"client_state_env"`
	CheckInterval     time.Duration `yaml:"check_interval"`
	RenewThreshold    time.Duration `yaml:"renew_threshold"`
	DailyRecreateHour int           `yaml:"daily_recreate_hour"`
	MaxCreationRetries uint64       `yaml:"max_creation_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`

	AlertEnabled    bool          `yaml:"alert_enabled"`
	AlertRecipients []string      `yaml:"alert_recipients"`
	AlertFromUserID string        `yaml:"alert_from_user_id"`
	AlertCooldown   time.Duration `yaml:"alert_cooldown"`
}

// RelayYAMLConfig configures the hybrid-connection relay listener used
// when the deployment can't expose a public webhook endpoint directly.
type RelayYAMLConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Namespace      string `yaml:"namespace"`
	ConnectionName string `yaml:"connection_name"`
	KeyName        string `yaml:"key_name"`
	KeyEnv         string `yaml:"key_env"`

	TokenTTL      time.Duration `yaml:"token_ttl"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// DistributionYAMLConfig configures the chat/email distribution channels.
type DistributionYAMLConfig struct {
	TeamsChatEnabled bool   `yaml:"teams_chat_enabled"`
	EmailEnabled     bool   `yaml:"email_enabled"`
	EmailFromUserID  string `yaml:"email_from_user_id"`
	EmailFrom        string `yaml:"email_from"`
}

// HTTPYAMLConfig configures the health/readiness/manual-trigger server.
type HTTPYAMLConfig struct {
	Port int `yaml:"port"`
}

// LoggingYAMLConfig configures slog's handler.
type LoggingYAMLConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// RetentionYAMLConfig configures the background sweep that purges
// terminal job rows past their useful life.
type RetentionYAMLConfig struct {
	JobAge        time.Duration `yaml:"job_age"`
	CheckInterval time.Duration `yaml:"check_interval"`
}
