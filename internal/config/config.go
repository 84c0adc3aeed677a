package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	App        AppConfig        `mapstructure:"app"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Geo        GeoConfig        `mapstructure:"geo"`
}

type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AppConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type StorageConfig struct {
	Driver        string `mapstructure:"driver"`
	Namespace     string `mapstructure:"namespace"`
	FilePath      string `mapstructure:"file_path"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisUsername string `mapstructure:"redis_username"`
	RedisPassword string `mapstructure:"redis_password"`
	PostgresURL   string `mapstructure:"postgres_url"`
}

type SchedulerConfig struct {
	HorizonDays int           `mapstructure:"horizon_days"`
	Debounce    time.Duration `mapstructure:"debounce"`
	TestDelay   time.Duration `mapstructure:"test_delay"`
}

type DispatcherConfig struct {
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	StaleAfter    time.Duration `mapstructure:"stale_after"`
}

type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

type GeoConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Language string        `mapstructure:"language"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("app.timezone", "")

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.namespace", "prayer-storage")
	v.SetDefault("storage.file_path", "data/prayer-storage.json")
	v.SetDefault("storage.sqlite_path", "data/mihrab.db")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_username", "")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.postgres_url", "")

	v.SetDefault("scheduler.horizon_days", 7)
	v.SetDefault("scheduler.debounce", "500ms")
	v.SetDefault("scheduler.test_delay", "3s")

	v.SetDefault("dispatcher.retry_interval", "1m")
	v.SetDefault("dispatcher.max_attempts", 3)
	v.SetDefault("dispatcher.stale_after", "30m")

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "mihrab-server")
	v.SetDefault("mqtt.topic_prefix", "mihrab")

	v.SetDefault("geo.base_url", "https://api.bigdatacloud.net/data/reverse-geocode-client")
	v.SetDefault("geo.timeout", "5s")
	v.SetDefault("geo.language", "ar")
}

// LoadConfig reads an optional YAML file, then applies MIHRAB_* environment
// overrides (a .env file in the working directory is loaded first).
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MIHRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Scheduler.HorizonDays <= 0 {
		cfg.Scheduler.HorizonDays = 7
	}
	if cfg.Dispatcher.MaxAttempts <= 0 {
		cfg.Dispatcher.MaxAttempts = 1
	}

	return &cfg, nil
}

// Location resolves the configured timezone, defaulting to the host's.
func (c AppConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
