package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultAPIHost      = "https://api.yosmart.com"
	DefaultPollInterval = 5 * time.Minute
	DefaultHTTPTimeout  = 30 * time.Second
)

var ErrMissingCredentials = errors.New("Configuration Error: Please set your uaid and secretKey.")

type Config struct {
	YolinkCfg  *YolinkConfig
	SinkCfg    *SinkConfig
	ListenAddr string
	LogLevel   string
}

type YolinkConfig struct {
	ClientID     string
	ClientSecret string
	Host         string
	DeviceIDs    []string
	PollInterval time.Duration
	RequestDelay time.Duration
	HTTPTimeout  time.Duration
}

// SinkConfig holds the optional consumers of poll results. Empty values disable a sink.
type SinkConfig struct {
	MqttHost         string        `env:"MQTT_HOST"`
	MqttUser         string        `env:"MQTT_USER"`
	MqttPass         string        `env:"MQTT_PASS"`
	MqttClientID     string        `env:"MQTT_CLIENT_ID" envDefault:"yolink-integration"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	MigrationsFolder string        `env:"MIGRATIONS_FOLDER" envDefault:"migrations"`
	CleanupSchedule  string        `env:"CLEANUP_SCHEDULE" envDefault:"0 3 * * *"`
	StaleAfter       time.Duration `env:"STALE_AFTER" envDefault:"192h"`
}

func LoadSinkConfig() (*SinkConfig, error) {
	cfg := &SinkConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse sink config: %w", err)
	}
	return cfg, nil
}

func (c *SinkConfig) MqttEnabled() bool {
	return c != nil && c.MqttHost != ""
}

func (c *SinkConfig) DatabaseEnabled() bool {
	return c != nil && c.DatabaseURL != ""
}

// Validate reports ErrMissingCredentials before anything touches the network.
func (c *YolinkConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrMissingCredentials
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("poll interval must be at least 1s, got %s", c.PollInterval)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay cannot be negative, got %s", c.RequestDelay)
	}
	return nil
}

// WithDefaults fills zero values with the package defaults.
func (c *YolinkConfig) WithDefaults() *YolinkConfig {
	out := *c
	if out.Host == "" {
		out.Host = DefaultAPIHost
	}
	if out.PollInterval == 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.HTTPTimeout == 0 {
		out.HTTPTimeout = DefaultHTTPTimeout
	}
	return &out
}
