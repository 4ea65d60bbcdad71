// Package config loads the table, committee and runtime settings from a YAML
// or TOML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Provider kinds.
const (
	KindBot    = "bot"
	KindLLM    = "llm"
	KindRemote = "remote"
)

// Config is the whole runtime configuration.
type Config struct {
	Table     Table      `yaml:"table" toml:"table"`
	Consensus Consensus  `yaml:"consensus" toml:"consensus"`
	Committee []Provider `yaml:"committee" toml:"committee"`
	LLM       LLM        `yaml:"llm" toml:"llm"`
	Log       Log        `yaml:"log" toml:"log"`
	Telemetry Telemetry  `yaml:"telemetry" toml:"telemetry"`
	Seed      int64      `yaml:"seed" toml:"seed" env:"DM_SEED"`
}

// Table describes the poker table.
type Table struct {
	Players       []string `yaml:"players" toml:"players"`
	StartingStack uint     `yaml:"starting_stack" toml:"starting_stack"`
	Ante          uint     `yaml:"ante" toml:"ante"`
	MinBet        uint     `yaml:"min_bet" toml:"min_bet"`
	MaxDiscards   int      `yaml:"max_discards" toml:"max_discards"`
	DrawStyle     string   `yaml:"draw_style" toml:"draw_style"`
	MaxHands      int      `yaml:"max_hands" toml:"max_hands" env:"DM_MAX_HANDS"`
}

// Consensus tunes the resolver.
type Consensus struct {
	CallTimeout   time.Duration `yaml:"call_timeout" toml:"call_timeout" env:"DM_CALL_TIMEOUT"`
	MarginFloor   int           `yaml:"margin_floor" toml:"margin_floor" env:"DM_MARGIN_FLOOR"`
	MarginDivisor int           `yaml:"margin_divisor" toml:"margin_divisor" env:"DM_MARGIN_DIVISOR"`
	MarginGuard   bool          `yaml:"margin_guard" toml:"margin_guard" env:"DM_MARGIN_GUARD"`
	MaxRounds     int           `yaml:"max_rounds" toml:"max_rounds" env:"DM_MAX_ROUNDS"`
}

// Provider is one committee member.
type Provider struct {
	ID      string `yaml:"id" toml:"id"`
	Kind    string `yaml:"kind" toml:"kind"`
	Style   string `yaml:"style,omitempty" toml:"style"`
	Model   string `yaml:"model,omitempty" toml:"model"`
	Address string `yaml:"address,omitempty" toml:"address"`
	// Insecure skips certificate verification of a remote proposer.
	Insecure      bool          `yaml:"insecure,omitempty" toml:"insecure"`
	Latency       time.Duration `yaml:"latency,omitempty" toml:"latency"`
	Jitter        time.Duration `yaml:"jitter,omitempty" toml:"jitter"`
	RatePerSecond float64       `yaml:"rate_per_second,omitempty" toml:"rate_per_second"`
	Burst         int           `yaml:"burst,omitempty" toml:"burst"`
}

// LLM holds the settings shared by every llm proposer.
type LLM struct {
	BaseURL     string  `yaml:"base_url" toml:"base_url" env:"DM_LLM_BASE_URL"`
	APIKey      string  `yaml:"-" toml:"-" env:"DM_LLM_API_KEY"`
	Model       string  `yaml:"model" toml:"model" env:"DM_LLM_MODEL"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
}

// Log selects the log level.
type Log struct {
	Level string `yaml:"level" toml:"level" env:"DM_LOG_LEVEL"`
}

// Telemetry enables OTLP trace export when Endpoint is set.
type Telemetry struct {
	Endpoint    string `yaml:"endpoint" toml:"endpoint" env:"DM_OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" toml:"service_name"`
	Insecure    bool   `yaml:"insecure" toml:"insecure" env:"DM_OTEL_INSECURE"`
}

// Default returns a runnable configuration: four seats and a committee of
// five local bots.
func Default() Config {
	return Config{
		Table: Table{
			Players:       []string{"north", "east", "south", "west"},
			StartingStack: 200,
			Ante:          1,
			MinBet:        4,
			MaxDiscards:   3,
			DrawStyle:     "batch",
		},
		Consensus: Consensus{
			CallTimeout:   10 * time.Second,
			MarginFloor:   2,
			MarginDivisor: 3,
			MarginGuard:   true,
			MaxRounds:     8,
		},
		Committee: []Provider{
			{ID: "tight-1", Kind: KindBot, Style: "tight"},
			{ID: "tight-2", Kind: KindBot, Style: "tight"},
			{ID: "loose", Kind: KindBot, Style: "loose"},
			{ID: "station", Kind: KindBot, Style: "station"},
			{ID: "random", Kind: KindBot, Style: "random", Latency: 50 * time.Millisecond, Jitter: 100 * time.Millisecond},
		},
		LLM: LLM{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
		},
		Log:       Log{Level: "info"},
		Telemetry: Telemetry{ServiceName: "dominion-maker"},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .yaml, .yml or .toml. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	// A committee in the file replaces the default one instead of merging
	// into it element by element.
	defaults := cfg.Committee
	cfg.Committee = nil
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if cfg.Committee == nil {
		cfg.Committee = defaults
	}
	return cfg, nil
}

// ApplyEnv overlays the DM_* environment variables.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadWithEnv is Load followed by ApplyEnv and Validate.
func LoadWithEnv(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the committee and the consensus settings. Table limits are
// checked by the table itself.
func (c Config) Validate() error {
	var errs []error
	if len(c.Committee) == 0 {
		errs = append(errs, errors.New("committee is empty"))
	}
	seen := make(map[string]bool, len(c.Committee))
	for i, p := range c.Committee {
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("committee[%d]: missing id", i))
		} else if seen[p.ID] {
			errs = append(errs, fmt.Errorf("committee[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
		switch p.Kind {
		case KindBot:
		case KindLLM:
			if c.LLM.APIKey == "" {
				errs = append(errs, fmt.Errorf("committee[%d]: llm proposer needs DM_LLM_API_KEY", i))
			}
		case KindRemote:
			if p.Address == "" {
				errs = append(errs, fmt.Errorf("committee[%d]: remote proposer needs an address", i))
			}
		default:
			errs = append(errs, fmt.Errorf("committee[%d]: unknown provider kind %q", i, p.Kind))
		}
	}
	if c.Consensus.CallTimeout < 0 {
		errs = append(errs, errors.New("consensus.call_timeout must not be negative"))
	}
	if c.Consensus.MarginFloor < 1 {
		errs = append(errs, errors.New("consensus.margin_floor must be at least 1"))
	}
	if c.Consensus.MarginDivisor < 1 {
		errs = append(errs, errors.New("consensus.margin_divisor must be at least 1"))
	}
	if c.Consensus.MaxRounds < 0 {
		errs = append(errs, errors.New("consensus.max_rounds must not be negative"))
	}
	return errors.Join(errs...)
}
