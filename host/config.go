package host

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tailored-agentic-units/tickstore/medium"
	"github.com/tailored-agentic-units/tickstore/store"
)

const (
	defaultTickInterval = 50 * time.Millisecond
	defaultQueueSize    = 256
)

// Duration is a time.Duration that reads and writes JSON as a Go duration
// string ("50ms"). Plain numbers decode as nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("duration must be a string or integer: %s", data)
	}
	*d = Duration(n)
	return nil
}

// Config holds initialization parameters for the medium, the store and the
// driver. Each section delegates to that package's config-driven constructor.
type Config struct {
	Store        store.Config  `json:"store"`
	Medium       medium.Config `json:"medium"`
	TickInterval Duration      `json:"tick_interval,omitempty"`
	QueueSize    int           `json:"queue_size,omitempty"`
	Observer     string        `json:"observer,omitempty"`
}

// DefaultConfig returns a Config with an in-memory medium and a 50ms cycle.
func DefaultConfig() Config {
	return Config{
		Store:        store.DefaultConfig(),
		Medium:       medium.DefaultConfig(),
		TickInterval: Duration(defaultTickInterval),
		QueueSize:    defaultQueueSize,
		Observer:     "slog",
	}
}

// Merge applies non-zero values from source into c, delegating to each
// section's Merge method.
func (c *Config) Merge(source *Config) {
	c.Store.Merge(&source.Store)
	c.Medium.Merge(&source.Medium)

	if source.TickInterval > 0 {
		c.TickInterval = source.TickInterval
	}
	if source.QueueSize > 0 {
		c.QueueSize = source.QueueSize
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
