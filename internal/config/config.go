// Package config provides configuration loading for the statusboard daemon.
//
// Configuration is loaded from a single file named by the --config flag or,
// failing that, the STATUSBOARD_CONFIG environment variable. With neither
// set the built-in defaults are used. Values present in the file replace
// the defaults; command-line flags are applied by the caller afterwards.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/sanverite/statusboard/internal/core"
	"github.com/sanverite/statusboard/internal/probe"
)

// EnvConfig names the environment variable consulted when no --config
// flag is given.
const EnvConfig = "STATUSBOARD_CONFIG"

// DefaultListen is the default HTTP bind address. It listens on all
// interfaces so wall displays on the LAN can connect.
const DefaultListen = "0.0.0.0:8000"

// Config is the daemon configuration.
type Config struct {
	// Listen is the HTTP bind address.
	Listen string `yaml:"listen"`

	// DefaultMode is the mode key at startup and the fallback for event
	// codes no mode claims.
	DefaultMode string `yaml:"default_mode"`

	// PollInterval is the collector period.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ProbeTimeout bounds each probe call.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// IdleThreshold is the idle time after which the idle code applies.
	IdleThreshold time.Duration `yaml:"idle_threshold"`

	// SubscriberBuffer is the per-client queue depth before a slow client
	// is dropped.
	SubscriberBuffer int `yaml:"subscriber_buffer"`

	// Notify enables desktop notifications on mode changes.
	Notify bool `yaml:"notify"`

	// Probes configures the desktop signal sources.
	Probes ProbesConfig `yaml:"probes"`

	// Modes is the mode table in cycle order.
	Modes []ModeConfig `yaml:"modes"`
}

// ProbesConfig configures the desktop probes. Each command is a full argv;
// an empty list disables that probe.
type ProbesConfig struct {
	Call   []string   `yaml:"call"`
	Idle   []string   `yaml:"idle"`
	Player []string   `yaml:"player"`
	MPD    *MPDConfig `yaml:"mpd,omitempty"`
}

// MPDConfig locates an optional MPD server used as a media source.
type MPDConfig struct {
	Network  string `yaml:"network"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

// ModeConfig is one entry of the mode table.
type ModeConfig struct {
	Key      string `yaml:"key"`
	Title    string `yaml:"title"`
	Note     string `yaml:"note"`
	Emoji    string `yaml:"emoji"`
	Color    string `yaml:"color"`
	Triggers []int  `yaml:"triggers"`
}

// Default returns the built-in configuration: one mode per event code in
// both the normal and the do-not-disturb bank.
func Default() Config {
	return Config{
		Listen:           DefaultListen,
		DefaultMode:      "1",
		PollInterval:     2 * time.Second,
		ProbeTimeout:     time.Second,
		IdleThreshold:    30 * time.Second,
		SubscriberBuffer: 16,
		Notify:           true,
		Probes: ProbesConfig{
			Call:   append([]string(nil), probe.DefaultCallCommand...),
			Idle:   append([]string(nil), probe.DefaultIdleCommand...),
			Player: append([]string(nil), probe.DefaultPlayerCommand...),
		},
		Modes: []ModeConfig{
			{Key: "1", Title: "Available", Note: "happy to be interrupted", Emoji: "✅", Color: "#388E3C",
				Triggers: []int{core.CodeAvailable}},
			{Key: "2", Title: "Back in a moment", Note: "back soon", Emoji: "🫠", Color: "#D1D1D1",
				Triggers: []int{core.CodeIdle}},
			{Key: "3", Title: "In a call, please knock", Note: "happy to be interrupted", Emoji: "🔇", Color: "#FBC02D",
				Triggers: []int{core.CodeCall}},
			{Key: "4", Title: "Do not disturb, prefer writing", Note: "rather not interrupted", Emoji: "⛔", Color: "#D32F2F",
				Triggers: []int{core.CodeAvailable + core.DoNotDisturbOffset}},
			{Key: "5", Title: "Away, do not disturb", Note: "back soon", Emoji: "🫠", Color: "#9E9E9E",
				Triggers: []int{core.CodeIdle + core.DoNotDisturbOffset}},
			{Key: "6", Title: "In a call, do not disturb", Note: "rather not interrupted", Emoji: "🔇", Color: "#F57C00",
				Triggers: []int{core.CodeCall + core.DoNotDisturbOffset}},
		},
	}
}

// Path picks the config file: flagPath if set, otherwise $STATUSBOARD_CONFIG.
// An empty result means "use defaults".
func Path(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return os.Getenv(EnvConfig)
}

// Load reads path and validates the result. An empty path returns the
// validated defaults.
func Load(path string) (Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the defaults. ext selects the syntax: ".json"
// and ".jsonc" are stripped of comments and trailing commas first, anything
// else is YAML. Unknown keys are rejected.
func Parse(data []byte, ext string) (Config, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges and that the mode table is well formed.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("listen address is empty")
	}
	if c.PollInterval < 0 || c.ProbeTimeout < 0 || c.IdleThreshold < 0 {
		return errors.New("durations must not be negative")
	}
	if c.SubscriberBuffer < 0 {
		return errors.New("subscriber_buffer must be >= 0")
	}
	if c.Probes.MPD != nil {
		if _, err := probe.NewMPD(c.Probes.MPD.probeConfig()); err != nil {
			return err
		}
	}
	if _, err := c.ModeTable(); err != nil {
		return err
	}
	return nil
}

// ModeTable builds the immutable mode table.
func (c Config) ModeTable() (*core.ModeTable, error) {
	modes := make([]core.Mode, 0, len(c.Modes))
	for _, m := range c.Modes {
		modes = append(modes, core.Mode{
			Key:      m.Key,
			Title:    m.Title,
			Note:     m.Note,
			Emoji:    m.Emoji,
			Color:    m.Color,
			Triggers: m.Triggers,
		})
	}
	t, err := core.NewModeTable(modes, c.DefaultMode)
	if err != nil {
		return nil, fmt.Errorf("modes: %w", err)
	}
	return t, nil
}

// ProbeConfig maps the probe section to probe.Config.
func (c Config) ProbeConfig() probe.Config {
	pc := probe.Config{
		CallCommand:   append([]string(nil), c.Probes.Call...),
		IdleCommand:   append([]string(nil), c.Probes.Idle...),
		PlayerCommand: append([]string(nil), c.Probes.Player...),
	}
	if c.Probes.MPD != nil {
		m := c.Probes.MPD.probeConfig()
		pc.MPD = &m
	}
	return pc
}

func (m MPDConfig) probeConfig() probe.MPDConfig {
	return probe.MPDConfig{
		Network:  m.Network,
		Address:  m.Address,
		Password: m.Password,
	}
}
