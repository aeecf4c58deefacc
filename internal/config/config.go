package config

// Storage backend names accepted by StorageConfig.Backend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
}

// LoggingConfig contains all logging-related configuration settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig selects and configures the blob storage backend.
type StorageConfig struct {
	// Backend selects the blob store implementation.
	Backend string `mapstructure:"backend" validate:"required,oneof=memory redis postgres"`

	// Key is the blob key the task collection is persisted under.
	Key string `mapstructure:"key" validate:"required"`

	// MemoryQuotaBytes caps the size of a single value in the memory
	// backend. Zero means unlimited.
	MemoryQuotaBytes int `mapstructure:"memory_quota_bytes" validate:"gte=0"`

	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains connection settings for the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// PostgresConfig contains connection settings for the postgres backend.
type PostgresConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}
