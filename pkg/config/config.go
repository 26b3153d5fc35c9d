// Package config loads service settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root of the service configuration.
type Config struct {
	Service ServiceConf `yaml:"service"`
	Storage StorageConf `yaml:"storage"`
	Logging LoggingConf `yaml:"logging"`
	Tracing TracingConf `yaml:"tracing"`
	Metrics MetricsConf `yaml:"metrics"`
}

// ServiceConf holds HTTP server settings.
type ServiceConf struct {
	Name            string `yaml:"name" env:"SERVICE_NAME" envDefault:"bookflow" validate:"required"`
	Host            string `yaml:"host" env:"HOST" envDefault:"localhost"`
	Port            int    `yaml:"port" env:"PORT" envDefault:"8000" validate:"gt=0,lte=65535"`
	TLSCert         string `yaml:"tls_cert" env:"TLS_CERT" validate:"required_with=TLSKey"`
	TLSKey          string `yaml:"tls_key" env:"TLS_KEY" validate:"required_with=TLSCert"`
	Compression     bool   `yaml:"compression" env:"COMPRESSION"`
	ShutdownTimeout string `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Seed            bool   `yaml:"seed" env:"SEED_DATA"`
}

// StorageConf selects the book repository.
type StorageConf struct {
	Driver        string `yaml:"driver" env:"STORAGE_DRIVER" envDefault:"memory" validate:"oneof=memory postgres redis"`
	DatabaseURL   string `yaml:"database_url" env:"DATABASE_URL" validate:"required_if=Driver postgres"`
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR" validate:"required_if=Driver redis"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB" validate:"gte=0"`
	RedisPrefix   string `yaml:"redis_prefix" env:"REDIS_PREFIX" envDefault:"livros"`
}

// LoggingConf controls log verbosity.
type LoggingConf struct {
	Level string `yaml:"level" env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// TracingConf controls OpenTelemetry export.
type TracingConf struct {
	Host        string  `yaml:"host" env:"OTEL_HOST"`
	Probability float64 `yaml:"probability" env:"OTEL_SAMPLE_RATIO" envDefault:"1" validate:"gte=0,lte=1"`
}

// MetricsConf controls the DataDog statsd client.
type MetricsConf struct {
	Enabled   bool   `yaml:"enabled" env:"DD_ENABLED"`
	Addr      string `yaml:"addr" env:"DD_AGENT_HOST" validate:"required_if=Enabled true"`
	Namespace string `yaml:"namespace" env:"DD_NAMESPACE" envDefault:"bookflow."`
}

// Addr is the host:port the server listens on.
func (s ServiceConf) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// TLS reports whether a certificate pair is configured.
func (s ServiceConf) TLS() bool {
	return s.TLSCert != "" && s.TLSKey != ""
}

// GetShutdownTimeout parses ShutdownTimeout, defaulting to ten seconds.
func (s ServiceConf) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// noDefaults names a tag no field carries, so a parse with it leaves
// fields the environment does not set untouched.
const noDefaults = "-"

// Load fills the envDefault tags, then reads the YAML file at path when path
// is not empty, then applies environment variables, then validates the
// result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{DefaultValueTagName: noDefaults}); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the struct tags of cfg.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("config validation: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Namespace(), e.Tag()))
	}
	return fmt.Errorf("invalid config:\n- %s", strings.Join(msgs, "\n- "))
}
