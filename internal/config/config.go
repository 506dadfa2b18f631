package config

// Storage drivers accepted by StorageConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverJSONFile = "jsonfile"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// Seconds allowed for in-flight requests to finish on shutdown
	ShutdownTimeout int `mapstructure:"shutdown_timeout" validate:"gte=0"`
	// Requests per minute per client IP on /api; 0 disables limiting
	RateLimit   int      `mapstructure:"rate_limit" validate:"gte=0"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig selects where review states are persisted.
type StorageConfig struct {
	Driver    string `mapstructure:"driver" validate:"required,oneof=memory jsonfile postgres badger"`
	JSONDir   string `mapstructure:"json_dir"`
	BadgerDir string `mapstructure:"badger_dir"`

	// Consecutive backend failures that open the circuit, and seconds it stays open
	BreakerFailures int `mapstructure:"breaker_failures" validate:"gte=1"`
	BreakerTimeout  int `mapstructure:"breaker_timeout" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
// URL is only required when the postgres storage driver is selected.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// SchedulerConfig overrides the scheduling parameters. Zero values keep the defaults.
type SchedulerConfig struct {
	DefaultEase float64 `mapstructure:"default_ease" validate:"omitempty,gte=1.3,lte=4"`
	MinEase     float64 `mapstructure:"min_ease" validate:"omitempty,gte=1.3,lte=4"`
	MaxEase     float64 `mapstructure:"max_ease" validate:"omitempty,gte=1.3,lte=4"`
}
