package config

import "time"

// EnvironmentProduction disables path namespacing and enables origin checks.
const EnvironmentProduction = "production"

// Config holds node configuration values.
type Config struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// Host is the externally visible hostname announced to the lobby.
	Host string `mapstructure:"host" yaml:"host"`
	// NodeIdentity namespaces the websocket path and bus subjects.
	NodeIdentity   string   `mapstructure:"node_identity" yaml:"node_identity"`
	Environment    string   `mapstructure:"environment" yaml:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	TLSKeyPath  string `mapstructure:"tls_key_path" yaml:"tls_key_path"`
	TLSCertPath string `mapstructure:"tls_cert_path" yaml:"tls_cert_path"`
	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	BusURL       string `mapstructure:"bus_url" yaml:"bus_url"`
	LobbySubject string `mapstructure:"lobby_subject" yaml:"lobby_subject"`
	MaxSessions  int    `mapstructure:"max_sessions" yaml:"max_sessions"`

	TelemetryEndpoint string `mapstructure:"telemetry_endpoint" yaml:"telemetry_endpoint"`
	CardStorePath     string `mapstructure:"card_store_path" yaml:"card_store_path"`
	LogLevel          string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string `mapstructure:"log_format" yaml:"log_format"`

	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `mapstructure:"heartbeat_timeout" yaml:"heartbeat_timeout"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	FinishedRetention time.Duration `mapstructure:"finished_retention" yaml:"finished_retention"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	// MaxCommandsPerMinute caps inbound commands per connection. Zero disables the cap.
	MaxCommandsPerMinute int `mapstructure:"max_commands_per_minute" yaml:"max_commands_per_minute"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":9000",
		Host:              "localhost",
		NodeIdentity:      "node1",
		Environment:       "development",
		LobbySubject:      "lobby",
		MaxSessions:       100,
		LogLevel:          "info",
		LogFormat:         "console",
		HeartbeatInterval: 25 * time.Second,
		HeartbeatTimeout:  30 * time.Second,
		SweepInterval:     60 * time.Second,
		FinishedRetention: 20 * time.Minute,
		MaxMessageBytes:   1 << 20,

		MaxCommandsPerMinute: 600,
		ReadHeaderTimeout:    5 * time.Second,
		ShutdownTimeout:      5 * time.Second,
	}
}

// Production reports whether the node runs in production mode.
func (c Config) Production() bool {
	return c.Environment == EnvironmentProduction
}

// WSPath is the websocket endpoint. Outside production it is namespaced by
// node identity so several nodes can share one reverse proxy.
func (c Config) WSPath() string {
	if c.Production() || c.NodeIdentity == "" {
		return "/ws"
	}
	return "/" + c.NodeIdentity + "/ws"
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.Host != "" {
		c.Host = other.Host
	}
	if other.NodeIdentity != "" {
		c.NodeIdentity = other.NodeIdentity
	}
	if other.Environment != "" {
		c.Environment = other.Environment
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.BusURL != "" {
		c.BusURL = other.BusURL
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}
