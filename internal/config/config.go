package config

// #region imports
import (
	"fmt"
	"os"

	"github.com/nbarrick/vigil/go-pipeline/internal/classifier"
	"github.com/nbarrick/vigil/go-pipeline/internal/features"
	"github.com/nbarrick/vigil/go-pipeline/internal/rationale"
	"gopkg.in/yaml.v3"
)

// #endregion

// #region types

// Config is the full YAML configuration: channels, the feature schema, the
// state set, rationale rules, playback tuning, and endpoint addresses.
// Thresholds and windows live here so they can be tuned without code changes.
type Config struct {
	Channels  []string         `yaml:"channels"`
	States    []string         `yaml:"states"`
	Features  []features.Spec  `yaml:"features"`
	Rationale rationale.Config `yaml:"rationale"`
	Playback  PlaybackConfig   `yaml:"playback"`
	Server    ServerConfig     `yaml:"server"`
	MQTT      MQTTConfig       `yaml:"mqtt"`
	Paths     PathsConfig      `yaml:"paths"`
}

// PlaybackConfig tunes the playback controller.
type PlaybackConfig struct {
	AllowedSpeeds []int `yaml:"allowed_speeds"`
	// MaxDuration caps the playback bound in samples; 0 means the full
	// series length.
	MaxDuration  int `yaml:"max_duration"`
	TickPeriodMS int `yaml:"tick_period_ms"`
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// MQTTConfig holds the optional live-feed broker. Empty broker disables the
// feed.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// PathsConfig points at the input series and the trained artifact.
type PathsConfig struct {
	Series   string `yaml:"series"`
	Artifact string `yaml:"artifact"`
}

// #endregion types

// #region load

// Load reads and validates a YAML config file, then applies env overrides
// for addresses (VIGIL_ADDR, VIGIL_MQTT_BROKER).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Server.Addr = envOr("VIGIL_ADDR", cfg.Server.Addr)
	cfg.MQTT.Broker = envOr("VIGIL_MQTT_BROKER", cfg.MQTT.Broker)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the baseline configuration before file values apply.
func Default() *Config {
	states := classifier.DefaultStateSet()
	return &Config{
		States: states[:],
		Playback: PlaybackConfig{
			AllowedSpeeds: []int{1, 2, 5, 10},
			TickPeriodMS:  1000,
		},
		Server: ServerConfig{Addr: ":8090"},
		MQTT:   MQTTConfig{TopicPrefix: "vigil"},
	}
}

// #endregion load

// #region validate

// Validate checks the pieces a pipeline cannot be built without. Anything
// wrong here is a fatal configuration error, surfaced before startup.
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("no channels configured")
	}
	if len(c.States) != classifier.NumStates {
		return fmt.Errorf("exactly %d states required, got %d", classifier.NumStates, len(c.States))
	}
	if len(c.Features) == 0 {
		return fmt.Errorf("no features configured")
	}
	if c.Playback.MaxDuration < 0 {
		return fmt.Errorf("playback max_duration must be >= 0")
	}
	if c.Playback.TickPeriodMS <= 0 {
		return fmt.Errorf("playback tick_period_ms must be > 0")
	}
	return nil
}

// #endregion validate

// #region accessors

// Schema returns the ordered feature schema.
func (c *Config) Schema() features.Schema {
	return features.Schema{Specs: c.Features}
}

// StateSet returns the configured name↔ordinal mapping.
func (c *Config) StateSet() classifier.StateSet {
	var s classifier.StateSet
	copy(s[:], c.States)
	return s
}

// Bound returns the playback upper bound for a series of length n: the
// minimum of n and the configured duration cap.
func (c *Config) Bound(n int) int {
	if c.Playback.MaxDuration > 0 && c.Playback.MaxDuration < n {
		return c.Playback.MaxDuration
	}
	return n
}

// #endregion accessors

// #region env

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion env
