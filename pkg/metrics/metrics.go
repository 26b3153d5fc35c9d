// Package metrics sends service metrics to DataDog statsd, or nowhere.
package metrics

import (
	"fmt"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// Provider is the contract used to emit metrics.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// Config selects and configures the provider.
type Config struct {
	Enabled   bool
	Addr      string
	Namespace string
	Tags      []string
}

// Noop discards every metric.
type Noop struct{}

func (Noop) Count(string, float64, []string) error     { return nil }
func (Noop) Gauge(string, float64, []string) error     { return nil }
func (Noop) Histogram(string, float64, []string) error { return nil }

// Datadog adapts a statsd client to Provider.
type Datadog struct {
	client *statsd.Client
}

func (d *Datadog) Count(name string, value float64, tags []string) error {
	return d.client.Count(name, int64(value), tags, 1)
}

func (d *Datadog) Gauge(name string, value float64, tags []string) error {
	return d.client.Gauge(name, value, tags, 1)
}

func (d *Datadog) Histogram(name string, value float64, tags []string) error {
	return d.client.Histogram(name, value, tags, 1)
}

// Close flushes and closes the statsd client.
func (d *Datadog) Close() error {
	return d.client.Close()
}

// Setup returns a Datadog provider when enabled and Noop otherwise.
func Setup(cfg Config) (Provider, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	opts := []statsd.Option{statsd.WithNamespace(cfg.Namespace)}
	if len(cfg.Tags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.Tags))
	}
	client, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect datadog statsd %s: %w", cfg.Addr, err)
	}
	return &Datadog{client: client}, nil
}
