package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/evcache"
	"github.com/unkn0wn-root/evcache/adhoc"
)

const DefaultMaxBodyBytes = 16 << 20

// Config is the YAML configuration of the hosted adhoc cache:
//
//	max_size: 10000
//	event_type: "*"
//	reset_events: [system:cachereset]
//	max_body_bytes: 16777216
type Config struct {
	MaxSize      int      `yaml:"max_size"`
	EventType    string   `yaml:"event_type"`
	ResetEvents  []string `yaml:"reset_events"`
	MaxBodyBytes int      `yaml:"max_body_bytes"`
}

func DefaultConfig() Config {
	return Config{
		EventType:    evcache.DefaultEventType,
		ResetEvents:  []string{"system:cachereset"},
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// LoadConfig reads path over DefaultConfig. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := ParseConfig(b)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func ParseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.MaxSize < 0 {
		return fmt.Errorf("max_size must be >= 0, got %d", c.MaxSize)
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be >= 0, got %d", c.MaxBodyBytes)
	}
	return nil
}

// NewCache builds the process-wide adhoc cache. Call it once at startup and
// pass the result to every Service; Close it on shutdown.
func NewCache(cfg Config, bus evcache.EventBus, logger evcache.Logger, hooks evcache.Hooks) (*adhoc.Cache[[]byte], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return adhoc.New[[]byte](adhoc.Options{
		Bus:         bus,
		EventType:   cfg.EventType,
		ResetEvents: cfg.ResetEvents,
		MaxSize:     cfg.MaxSize,
		Logger:      logger,
		Hooks:       hooks,
	})
}
