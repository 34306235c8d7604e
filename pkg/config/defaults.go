package config

import "time"

// defaultConfig returns the built-in defaults every loaded YAMLConfig is
// merged onto (YAML values win; zero-valued YAML fields fall back to
// these).
func defaultConfig() YAMLConfig {
	return YAMLConfig{
		Database: DatabaseYAMLConfig{
			Port:            5432,
			SSLMode:         "require",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Queue: QueueYAMLConfig{
			WorkerCount:             5,
			MaxConcurrentJobs:       10,
			PollInterval:            2 * time.Second,
			PollIntervalJitter:      500 * time.Millisecond,
			JobTimeout:              15 * time.Minute,
			GracefulShutdownTimeout: 30 * time.Second,
			HeartbeatInterval:       30 * time.Second,
			OrphanDetectionInterval: time.Minute,
			OrphanThreshold:         60 * time.Second,
		},
		Discovery: DiscoveryYAMLConfig{
			PollInterval:                  5 * time.Minute,
			MinimumMeetingDurationMinutes: 5,
		},
		Subscription: SubscriptionYAMLConfig{
			CheckInterval:      5 * time.Minute,
			RenewThreshold:     12 * time.Hour,
			DailyRecreateHour:  3,
			MaxCreationRetries: 5,
			RetryDelay:         30 * time.Second,
			AlertEnabled:       true,
			AlertCooldown:      6 * time.Hour,
		},
		Relay: RelayYAMLConfig{
			TokenTTL:      time.Hour,
			ReconnectWait: 5 * time.Second,
		},
		Distribution: DistributionYAMLConfig{
			TeamsChatEnabled: true,
			EmailEnabled:     true,
		},
		HTTP: HTTPYAMLConfig{
			Port: 8080,
		},
		Logging: LoggingYAMLConfig{
			Level:  "info",
			Format: "text",
		},
		Retention: RetentionYAMLConfig{
			JobAge:        30 * 24 * time.Hour,
			CheckInterval: time.Hour,
		},
	}
}
