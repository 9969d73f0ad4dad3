package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from a YAML file at path (if non-empty), layered
// under CLEANDNS_* environment variables and over hardcoded defaults, and
// validates the result (grounded on HydraDNS's config.Load/loadFromSource).
func Load(path string) (*Config, error) {
	v, err := initConfig(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.Bind = v.GetString("bind")
	cfg.Entry = v.GetString("entry")
	cfg.Logging.Level = strings.ToUpper(v.GetString("logging.level"))
	cfg.Logging.Structured = v.GetBool("logging.structured")
	cfg.Logging.StructuredFormat = v.GetString("logging.structured_format")
	cfg.Logging.IncludePID = v.GetBool("logging.include_pid")
	cfg.API.Enabled = v.GetBool("api.enabled")
	cfg.API.Host = v.GetString("api.host")
	cfg.API.Port = v.GetInt("api.port")

	if err := v.UnmarshalKey("plugins", &cfg.Plugins); err != nil {
		return nil, fmt.Errorf("config: decoding plugins: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLEANDNS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bind", "0.0.0.0:53")
	v.SetDefault("entry", "main")
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.structured", true)
	v.SetDefault("logging.structured_format", "json")
	v.SetDefault("logging.include_pid", false)
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 3000)
}

func validate(cfg *Config) error {
	if cfg.Bind == "" {
		return errors.New("config: \"bind\" must not be empty")
	}
	if cfg.Entry == "" {
		return errors.New("config: \"entry\" must not be empty")
	}
	if len(cfg.Plugins) == 0 {
		return errors.New("config: \"plugins\" must declare at least one entry")
	}
	if cfg.API.Enabled && (cfg.API.Port <= 0 || cfg.API.Port > 65535) {
		return errors.New("config: \"api.port\" must be 1..65535")
	}
	return nil
}
