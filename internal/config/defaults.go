package config

import "time"

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

func applyDefaults(cfg *Config) {
	if cfg.Server.Env == "" {
		cfg.Server.Env = "development"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30 * time.Minute
	}

	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 60
	}

	if cfg.Paging.DefaultPageSize <= 0 {
		cfg.Paging.DefaultPageSize = DefaultPageSize
	}
	if cfg.Paging.MaxPageSize <= 0 {
		cfg.Paging.MaxPageSize = MaxPageSize
	}
	if cfg.Paging.DefaultPageSize > cfg.Paging.MaxPageSize {
		cfg.Paging.DefaultPageSize = cfg.Paging.MaxPageSize
	}

	if cfg.Notifications.RetentionDays == 0 {
		cfg.Notifications.RetentionDays = 90
	}
	if cfg.Notifications.SweepInterval == 0 {
		cfg.Notifications.SweepInterval = 6 * time.Hour
	}
	if cfg.Notifications.UnreadCacheTTL == 0 {
		cfg.Notifications.UnreadCacheTTL = 5 * time.Minute
	}

	if cfg.Realtime.QueueSize == 0 {
		cfg.Realtime.QueueSize = 1024
	}
	if cfg.Realtime.Workers == 0 {
		cfg.Realtime.Workers = 4
	}
	if cfg.Realtime.Exchange == "" {
		cfg.Realtime.Exchange = "realtime"
	}

	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Email.QueueSize == 0 {
		cfg.Email.QueueSize = 256
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
}
