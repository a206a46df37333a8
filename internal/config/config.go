package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration. Secrets (bot token,
// database DSN) come from the environment, never from the file.
type Config struct {
	BotUsername     string   `yaml:"bot_username"`
	ChannelID       int64    `yaml:"channel_id"`
	AdminID         int64    `yaml:"admin_id"` // restricts poll creation when set; 0 leaves it open
	WelcomeImageURL string   `yaml:"welcome_image_url"`
	StorageDriver   string   `yaml:"storage_driver"`
	SQLitePath      string   `yaml:"sqlite_path"`
	KafkaBrokers    []string `yaml:"kafka_brokers"`
	KafkaTopic      string   `yaml:"kafka_topic"`
	FloodLimit      int      `yaml:"flood_limit"`
	FloodWindowSecs int      `yaml:"flood_window_secs"`
	DialogTTLMins   int      `yaml:"dialog_ttl_mins"`
	HTTPAddr        string   `yaml:"http_addr"`
	WebhookURL      string   `yaml:"webhook_url"`
	LogVerbose      bool     `yaml:"log_verbose"`

	BotToken    string `yaml:"-"`
	DatabaseDSN string `yaml:"-"`
}

// Defaults returns a Config with all default values set.
func Defaults() Config {
	return Config{
		StorageDriver:   DriverSQLite,
		SQLitePath:      "./votebot.db",
		KafkaTopic:      "votebot.votes",
		FloodLimit:      10,
		FloodWindowSecs: 30,
		DialogTTLMins:   15,
		HTTPAddr:        ":8080",
	}
}

// Load reads the YAML config file, applies environment overrides, and
// validates the result. VOTEBOT_CONFIG overrides the file path.
func Load(path string) (Config, error) {
	if envPath := os.Getenv("VOTEBOT_CONFIG"); envPath != "" {
		path = envPath
	}

	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.DatabaseDSN = os.Getenv("POSTGRES_DSN")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required fields are present and values are valid.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("env TELEGRAM_BOT_TOKEN is required")
	}
	if c.BotUsername == "" {
		return fmt.Errorf("bot_username is required")
	}
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("env POSTGRES_DSN is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage_driver %q", c.StorageDriver)
	}
	if c.FloodLimit <= 0 {
		return fmt.Errorf("flood_limit must be positive")
	}
	if c.FloodWindowSecs <= 0 {
		return fmt.Errorf("flood_window_secs must be positive")
	}
	if c.DialogTTLMins <= 0 {
		return fmt.Errorf("dialog_ttl_mins must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("kafka_topic is required when kafka_brokers is set")
	}
	return nil
}

func (c *Config) FloodWindow() time.Duration {
	return time.Duration(c.FloodWindowSecs) * time.Second
}

func (c *Config) DialogTTL() time.Duration {
	return time.Duration(c.DialogTTLMins) * time.Minute
}
