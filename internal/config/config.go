// Package config loads and validates application configuration from
// environment variables and optional config files.
package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Trigger  TriggerConfig  `mapstructure:"trigger"`
	Summary  SummaryConfig  `mapstructure:"summary"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains admin authentication settings. Admin access is a
// single shared credential: a bcrypt hash of the admin password and the
// secret used to sign session tokens.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	AdminPasswordHash    string `mapstructure:"admin_password_hash"    validate:"required"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// WorkerConfig configures the external transcription worker handoff.
// An empty endpoint means no worker is configured; dispatch attempts then
// fail immediately rather than stalling the queue.
type WorkerConfig struct {
	Endpoint               string `mapstructure:"endpoint"                 validate:"omitempty,url"`
	SharedSecret           string `mapstructure:"shared_secret"`
	DispatchTimeoutSeconds int    `mapstructure:"dispatch_timeout_seconds" validate:"gte=0"`
}

// TriggerConfig configures the periodic dispatch trigger endpoint.
// When Secret is set, trigger calls must present it as a bearer token.
type TriggerConfig struct {
	Secret string `mapstructure:"secret"`
}

// SummaryConfig contains transcript summarization settings.
type SummaryConfig struct {
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	ModelName     string `mapstructure:"model_name"`
	MaxChunkChars int    `mapstructure:"max_chunk_chars" validate:"gte=0"`
}
