package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	Secret         string        `mapstructure:"secret"`
	APIKey         string        `mapstructure:"api_key"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PublishRate    float64       `mapstructure:"publish_rate"`
	PublishBurst   int           `mapstructure:"publish_burst"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 65536)
	v.SetDefault("secret", "")
	v.SetDefault("api_key", "")
	v.SetDefault("idle_timeout", "60s")
	v.SetDefault("sweep_interval", "0s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("publish_rate", 20)
	v.SetDefault("publish_burst", 40)
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) on top of the
// defaults. Environment variables win over the file: RELAY_<KEY> for any
// key, plus the bare PORT and API_KEY used by container platforms.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	setDefaults(v)
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "RELAY_PORT", "PORT")
	_ = v.BindEnv("api_key", "RELAY_API_KEY", "API_KEY")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Dur("idle_timeout", cfg.IdleTimeout).Bool("publish_gated", cfg.APIKey != "").Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.IdleTimeout <= 0 {
		return errors.New("idle_timeout must be positive")
	}
	if c.SweepInterval < 0 || (c.SweepInterval > 0 && c.SweepInterval >= c.IdleTimeout) {
		return fmt.Errorf("sweep_interval %s must be shorter than idle_timeout %s", c.SweepInterval, c.IdleTimeout)
	}
	if c.SendBuffer <= 0 {
		return errors.New("send_buffer must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write_timeout must be positive")
	}
	if c.PublishRate < 0 {
		return errors.New("publish_rate must not be negative")
	}
	return nil
}
