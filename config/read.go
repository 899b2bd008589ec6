package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Alijeyrad/cogniscreen/pkg/constants"
)

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(constants.ConfigName)
	v.SetConfigType(constants.ConfigFormat)
	v.AddConfigPath(configPath)

	// Allow env vars to override config values.
	// e.g. COGNISCREEN_PREDICTION_BASE_URL overrides prediction.base_url
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The config file is optional; defaults and env vars are enough to run.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit.max", 20)
	v.SetDefault("server.rate_limit.expiration_seconds", 30)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.key_prefix", constants.KeyPrefix)
	v.SetDefault("storage.sqlite.path", "cogniscreen.db")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.dbname", "cogniscreen")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("prediction.base_url", "http://localhost:5000")
	v.SetDefault("prediction.endpoint", "/predict")
	v.SetDefault("prediction.timeout_ms", 30000)

	v.SetDefault("assessment.history_limit", 50)
	v.SetDefault("assessment.draft_max_age_hours", 24)
	v.SetDefault("assessment.session_ttl_hours", 24)
	v.SetDefault("assessment.redirect_delay_ms", 2000)
	v.SetDefault("assessment.results_path", "/results.html")

	v.SetDefault("client.id", "local")

	v.SetDefault("observability.service_name", "cogniscreen")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.metrics.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output.stdout", true)

	v.SetDefault("nats.subject_prefix", "cogniscreen")
}
