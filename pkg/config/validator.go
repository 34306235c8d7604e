package config

import "fmt"

// Validator validates a loaded configuration comprehensively, with clear
// per-field error messages, failing fast section by section.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll validates every section in turn, stopping at the first
// failure.
func (v *Validator) ValidateAll() error {
	if err := v.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := v.validateGraph(); err != nil {
		return fmt.Errorf("graph validation failed: %w", err)
	}
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateDiscovery(); err != nil {
		return fmt.Errorf("discovery validation failed: %w", err)
	}
	if err := v.validateSubscription(); err != nil {
		return fmt.Errorf("subscription validation failed: %w", err)
	}
	if err := v.validateRelay(); err != nil {
		return fmt.Errorf("relay validation failed: %w", err)
	}
	if err := v.validateDistribution(); err != nil {
		return fmt.Errorf("distribution validation failed: %w", err)
	}
	if err := v.validateHTTP(); err != nil {
		return fmt.Errorf("http validation failed: %w", err)
	}
	if err := v.validateRetention(); err != nil {
		return fmt.Errorf("retention validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateDatabase() error {
	d := v.cfg.Database
	if d.Host == "" {
		return fmt.Errorf("host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", d.Port)
	}
	if d.Database == "" {
		return fmt.Errorf("database is required")
	}
	if d.MaxOpenConns < 1 {
		return fmt.Errorf("max_open_conns must be at least 1, got %d", d.MaxOpenConns)
	}
	if d.MaxIdleConns < 0 || d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("max_idle_conns must be between 0 and max_open_conns, got %d", d.MaxIdleConns)
	}
	return nil
}

func (v *Validator) validateGraph() error {
	g := v.cfg.Graph
	if g.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if g.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if g.ClientSecretEnv == "" {
		return fmt.Errorf("client_secret_env is required")
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q.WorkerCount < 1 || q.WorkerCount > 50 {
		return fmt.Errorf("worker_count must be between 1 and 50, got %d", q.WorkerCount)
	}
	if q.MaxConcurrentJobs < 1 {
		return fmt.Errorf("max_concurrent_jobs must be at least 1, got %d", q.MaxConcurrentJobs)
	}
	if q.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", q.PollInterval)
	}
	if q.PollIntervalJitter < 0 {
		return fmt.Errorf("poll_interval_jitter must be non-negative, got %v", q.PollIntervalJitter)
	}
	if q.PollIntervalJitter >= q.PollInterval {
		return fmt.Errorf("poll_interval_jitter must be less than poll_interval, got jitter=%v interval=%v", q.PollIntervalJitter, q.PollInterval)
	}
	if q.JobTimeout <= 0 {
		return fmt.Errorf("job_timeout must be positive, got %v", q.JobTimeout)
	}
	if q.GracefulShutdownTimeout <= 0 {
		return fmt.Errorf("graceful_shutdown_timeout must be positive, got %v", q.GracefulShutdownTimeout)
	}
	if q.OrphanDetectionInterval <= 0 {
		return fmt.Errorf("orphan_detection_interval must be positive, got %v", q.OrphanDetectionInterval)
	}
	if q.OrphanThreshold <= 0 {
		return fmt.Errorf("orphan_threshold must be positive, got %v", q.OrphanThreshold)
	}
	if q.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive, got %v", q.HeartbeatInterval)
	}
	if q.HeartbeatInterval >= q.OrphanThreshold {
		return fmt.Errorf("heartbeat_interval must be less than orphan_threshold to prevent false orphan detection, got heartbeat=%v threshold=%v", q.HeartbeatInterval, q.OrphanThreshold)
	}
	return nil
}

func (v *Validator) validateDiscovery() error {
	d := v.cfg.Discovery
	if d.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", d.PollInterval)
	}
	if d.MinimumMeetingDurationMinutes < 0 {
		return fmt.Errorf("minimum_meeting_duration_minutes must be non-negative, got %d", d.MinimumMeetingDurationMinutes)
	}
	return nil
}

func (v *Validator) validateSubscription() error {
	s := v.cfg.Subscription
	if s.WebhookURL == "" && !v.cfg.Relay.Enabled {
		return fmt.Errorf("webhook_url is required when relay is disabled")
	}
	if s.ClientStateEnv == "" {
		return fmt.Errorf("client_state_env is required")
	}
	if s.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive, got %v", s.CheckInterval)
	}
	if s.RenewThreshold <= 0 {
		return fmt.Errorf("renew_threshold must be positive, got %v", s.RenewThreshold)
	}
	if s.DailyRecreateHour < 0 || s.DailyRecreateHour > 23 {
		return fmt.Errorf("daily_recreate_hour must be between 0 and 23, got %d", s.DailyRecreateHour)
	}
	if s.AlertEnabled && len(s.AlertRecipients) == 0 {
		return fmt.Errorf("alert_recipients is required when alert_enabled is true")
	}
	return nil
}

func (v *Validator) validateRelay() error {
	r := v.cfg.Relay
	if !r.Enabled {
		return nil
	}
	if r.Namespace == "" {
		return fmt.Errorf("namespace is required when relay is enabled")
	}
	if r.ConnectionName == "" {
		return fmt.Errorf("connection_name is required when relay is enabled")
	}
	if r.KeyName == "" {
		return fmt.Errorf("key_name is required when relay is enabled")
	}
	if r.KeyEnv == "" {
		return fmt.Errorf("key_env is required when relay is enabled")
	}
	if r.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %v", r.TokenTTL)
	}
	if r.ReconnectWait <= 0 {
		return fmt.Errorf("reconnect_wait must be positive, got %v", r.ReconnectWait)
	}
	return nil
}

func (v *Validator) validateDistribution() error {
	d := v.cfg.Distribution
	if !d.TeamsChatEnabled && !d.EmailEnabled {
		return fmt.Errorf("at least one of teams_chat_enabled or email_enabled must be true")
	}
	if d.EmailEnabled && d.EmailFromUserID == "" {
		return fmt.Errorf("email_from_user_id is required when email_enabled is true")
	}
	return nil
}

func (v *Validator) validateHTTP() error {
	if v.cfg.HTTP.Port <= 0 || v.cfg.HTTP.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", v.cfg.HTTP.Port)
	}
	return nil
}

func (v *Validator) validateRetention() error {
	r := v.cfg.Retention
	if r.JobAge <= 0 {
		return fmt.Errorf("job_age must be positive, got %v", r.JobAge)
	}
	if r.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive, got %v", r.CheckInterval)
	}
	return nil
}
