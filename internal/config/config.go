package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	// ChatDuration bounds the lifetime of a pairwise chat session.
	ChatDuration time.Duration `mapstructure:"chat_duration" yaml:"chat_duration"`
	// InactivityWindow is how long a login may stay idle before the reaper
	// logs the user out and drops the connection.
	InactivityWindow time.Duration `mapstructure:"inactivity_window" yaml:"inactivity_window"`
	ReaperInterval   time.Duration `mapstructure:"reaper_interval" yaml:"reaper_interval"`
	PresenceInterval time.Duration `mapstructure:"presence_interval" yaml:"presence_interval"`
	// SendQueueSize bounds the per-connection outbound frame queue.
	SendQueueSize int `mapstructure:"send_queue_size" yaml:"send_queue_size"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		DatabasePath:      "pairchat.db",
		JWTSecret:         "change-me-in-production",
		JWTIssuer:         "pairchat",
		JWTAudience:       "pairchat",
		JWTTTL:            24 * time.Hour,
		ChatDuration:      15 * time.Minute,
		InactivityWindow:  15 * time.Minute,
		ReaperInterval:    time.Minute,
		PresenceInterval:  5 * time.Second,
		SendQueueSize:     32,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.JWTTTL != 0 {
		c.JWTTTL = other.JWTTTL
	}
	if other.ChatDuration != 0 {
		c.ChatDuration = other.ChatDuration
	}
	if other.InactivityWindow != 0 {
		c.InactivityWindow = other.InactivityWindow
	}
	if other.ReaperInterval != 0 {
		c.ReaperInterval = other.ReaperInterval
	}
	if other.PresenceInterval != 0 {
		c.PresenceInterval = other.PresenceInterval
	}
	if other.SendQueueSize != 0 {
		c.SendQueueSize = other.SendQueueSize
	}
}
