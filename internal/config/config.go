package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	// HandshakeTimeout bounds credential verification at connection
	// setup; half-open handshakes are refused past it.
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`

	// TypingQuiescence is the idle window after which a typing flag
	// auto-resets.
	TypingQuiescence time.Duration `mapstructure:"typing_quiescence" yaml:"typing_quiescence"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "pulsechat.db",
		LogLevel:          "info",
		JWTSecret:         "change-me",
		JWTIssuer:         "pulsechat",
		JWTAudience:       "pulsechat-clients",
		HandshakeTimeout:  5 * time.Second,
		TypingQuiescence:  2 * time.Second,
	}
}
