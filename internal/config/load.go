package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variables read by Load,
// e.g. TASKSTORE_STORAGE_BACKEND maps to storage.backend.
const envPrefix = "TASKSTORE"

// Load reads configuration from environment variables, applies defaults,
// and validates the result. Returns a populated Config struct or an error
// if validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults double as the full key registry: viper's AutomaticEnv only
	// surfaces keys it already knows about during Unmarshal.
	v.SetDefault("logging.level", "info")
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.key", "tasks")
	v.SetDefault("storage.memory_quota_bytes", 0)
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.postgres.url", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for structural and backend-specific
// problems. It is exported so callers constructing a Config directly get the
// same guarantees as Load.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Backend-conditional requirements that struct tags cannot express.
	switch cfg.Storage.Backend {
	case BackendRedis:
		if cfg.Storage.Redis.Addr == "" {
			return errors.New("invalid configuration: storage.redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if cfg.Storage.Postgres.URL == "" {
			return errors.New("invalid configuration: storage.postgres.url is required for the postgres backend")
		}
	}

	return nil
}
